package engine

import "github.com/fenrir-exchange/matchcore/internal/common"

// stopTable holds stop orders that are not yet resting on the book. A buy
// stop triggers once the last trade price rises to or through its trigger
// price; a sell stop triggers once the last trade price falls to or
// through its trigger price.
type stopTable struct {
	orders map[common.OrderID]*common.Order
}

func newStopTable() *stopTable {
	return &stopTable{orders: make(map[common.OrderID]*common.Order)}
}

func (t *stopTable) add(o *common.Order) {
	t.orders[o.ID] = o
}

func (t *stopTable) remove(id common.OrderID) bool {
	if _, ok := t.orders[id]; !ok {
		return false
	}
	delete(t.orders, id)
	return true
}

// snapshotIDs captures the table's membership at the start of a command so
// a trigger cascade only ever considers stops that existed when the
// command began, bounding it to a single fixed-point pass.
func (t *stopTable) snapshotIDs() []common.OrderID {
	ids := make([]common.OrderID, 0, len(t.orders))
	for id := range t.orders {
		ids = append(ids, id)
	}
	return ids
}

// triggeredBy checks lastPrice against every still-pending order in ids,
// removes and returns the ones that cross, converting them to market
// orders in place.
func (t *stopTable) triggeredBy(lastPrice common.Price, ids []common.OrderID) []*common.Order {
	var out []*common.Order
	for _, id := range ids {
		o, ok := t.orders[id]
		if !ok {
			continue
		}
		var crossed bool
		if o.Side == common.Buy {
			crossed = lastPrice >= o.StopPrice
		} else {
			crossed = lastPrice <= o.StopPrice
		}
		if !crossed {
			continue
		}
		delete(t.orders, id)
		o.Type = common.Market
		out = append(out, o)
	}
	return out
}
