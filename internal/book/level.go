// Package book implements the per-symbol two-sided limit order book:
// PriceLevel (FIFO queue at one price), BookSide (ordered map of price to
// PriceLevel), OrderIndex (order id -> location), and OrderBook (the pair
// of sides plus the index). This is the leaf data structure the matching
// engine in internal/engine mutates.
package book

import "github.com/fenrir-exchange/matchcore/internal/common"

// PriceLevel is the FIFO queue of resting orders at one (symbol, side,
// price). All entries share the same symbol/side/price and are ordered
// by arrival.
type PriceLevel struct {
	Symbol   common.Symbol
	Side     common.Side
	Price    common.Price
	orders   []*common.Order
	totalQty common.Quantity
}

func newPriceLevel(symbol common.Symbol, side common.Side, price common.Price) *PriceLevel {
	return &PriceLevel{Symbol: symbol, Side: side, Price: price}
}

// Append adds a new resting order to the tail of the level.
func (l *PriceLevel) Append(o *common.Order) {
	l.orders = append(l.orders, o)
	l.totalQty += o.Remaining()
}

// Head returns the earliest-arrived resting order, or nil if the level
// is empty.
func (l *PriceLevel) Head() *common.Order {
	if len(l.orders) == 0 {
		return nil
	}
	return l.orders[0]
}

// PopHead removes and returns the earliest-arrived order.
func (l *PriceLevel) PopHead() *common.Order {
	if len(l.orders) == 0 {
		return nil
	}
	o := l.orders[0]
	l.orders = l.orders[1:]
	return o
}

// Remove deletes the order with the given id from anywhere in the level
// (used by Cancel; O(n) on the level, acceptable since levels are
// shallow in practice).
func (l *PriceLevel) Remove(id common.OrderID) (*common.Order, bool) {
	for i, o := range l.orders {
		if o.ID == id {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			l.totalQty -= o.Remaining()
			return o, true
		}
	}
	return nil, false
}

// ReduceQuantity records q ticks filled off the level's aggregate without
// mutating any individual order; the caller is responsible for mutating
// the order itself, this just keeps the aggregate counter in sync
// incrementally rather than by rescanning the level.
func (l *PriceLevel) ReduceQuantity(q common.Quantity) {
	l.totalQty -= q
}

// TotalQuantity is the sum of remaining quantity across resting orders.
func (l *PriceLevel) TotalQuantity() common.Quantity {
	return l.totalQty
}

// OrderCount is the number of resting orders at this level.
func (l *PriceLevel) OrderCount() int {
	return len(l.orders)
}

// Empty reports whether the level has no resting orders. Empty levels
// must never be left indexed in a BookSide.
func (l *PriceLevel) Empty() bool {
	return len(l.orders) == 0
}

// Orders returns the resting orders in arrival order. Callers must treat
// the slice as read-only; it aliases the level's internal storage.
func (l *PriceLevel) Orders() []*common.Order {
	return l.orders
}
