package book

import (
	"github.com/tidwall/btree"

	"github.com/fenrir-exchange/matchcore/internal/common"
)

// levels is the ordered-by-price container backing a BookSide
// (tidwall/btree.BTreeG[*PriceLevel]); BookSide wraps it with
// price-time-priority semantics.
type levels = btree.BTreeG[*PriceLevel]

// BookSide is the ordered set of price levels for one (symbol, side).
// Iteration order is descending for Buy (best bid first) and ascending
// for Sell (best ask first).
type BookSide struct {
	symbol common.Symbol
	side   common.Side
	tree   *levels
}

func newBookSide(symbol common.Symbol, side common.Side) *BookSide {
	var less func(a, b *PriceLevel) bool
	if side == common.Buy {
		less = func(a, b *PriceLevel) bool { return a.Price > b.Price }
	} else {
		less = func(a, b *PriceLevel) bool { return a.Price < b.Price }
	}
	return &BookSide{
		symbol: symbol,
		side:   side,
		tree:   btree.NewBTreeG(less),
	}
}

func (s *BookSide) pivot(price common.Price) *PriceLevel {
	return &PriceLevel{Price: price}
}

// LevelAt returns the level at price, creating it if it doesn't exist.
func (s *BookSide) LevelAt(price common.Price) *PriceLevel {
	if lvl, ok := s.tree.GetMut(s.pivot(price)); ok {
		return lvl
	}
	lvl := newPriceLevel(s.symbol, s.side, price)
	s.tree.Set(lvl)
	return lvl
}

// Get returns the level at price without creating it.
func (s *BookSide) Get(price common.Price) (*PriceLevel, bool) {
	return s.tree.GetMut(s.pivot(price))
}

// BestLevel returns the best (first-iterated) non-empty level.
func (s *BookSide) BestLevel() (*PriceLevel, bool) {
	var best *PriceLevel
	s.tree.Scan(func(lvl *PriceLevel) bool {
		best = lvl
		return false // stop after first — Scan iterates in sort order
	})
	if best == nil {
		return nil, false
	}
	return best, true
}

// BestPrice returns the price of the best level, if any.
func (s *BookSide) BestPrice() (common.Price, bool) {
	lvl, ok := s.BestLevel()
	if !ok {
		return 0, false
	}
	return lvl.Price, true
}

// DeleteIfEmpty removes lvl from the side if it has no resting orders,
// preserving the invariant that no empty level is ever indexed.
func (s *BookSide) DeleteIfEmpty(lvl *PriceLevel) {
	if lvl.Empty() {
		s.tree.Delete(lvl)
	}
}

// Depth returns the aggregates of the first n non-empty levels in
// priority order.
func (s *BookSide) Depth(n int) []LevelAggregate {
	if n <= 0 {
		return []LevelAggregate{}
	}
	out := make([]LevelAggregate, 0, n)
	s.tree.Scan(func(lvl *PriceLevel) bool {
		if lvl.Empty() {
			return true
		}
		out = append(out, LevelAggregate{
			Price:         lvl.Price,
			TotalQuantity: lvl.TotalQuantity(),
			OrderCount:    lvl.OrderCount(),
		})
		return len(out) < n
	})
	return out
}

// LevelAggregate is the public view of a level used by snapshots.
type LevelAggregate struct {
	Price         common.Price    `json:"price"`
	TotalQuantity common.Quantity `json:"total_quantity"`
	OrderCount    int             `json:"order_count"`
}
