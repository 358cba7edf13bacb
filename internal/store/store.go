// Package store is the durable state store consumed by the matching
// engine: atomic apply of a per-symbol change-set, a consistent
// per-symbol snapshot read, and a publish tied to the same atomic apply.
package store

import (
	"context"

	"github.com/fenrir-exchange/matchcore/internal/book"
	"github.com/fenrir-exchange/matchcore/internal/common"
	"github.com/fenrir-exchange/matchcore/internal/eventbus"
)

// LevelWrite upserts the aggregate and resting-order membership of one
// (side, price) level.
type LevelWrite struct {
	Side          common.Side
	Price         common.Price
	TotalQuantity common.Quantity
	OrderCount    int
	OrderIDs      []common.OrderID
}

// LevelDelete removes an emptied level from its side's price index.
type LevelDelete struct {
	Side  common.Side
	Price common.Price
}

// ChangeSet is the batched, per-symbol set of mutations one Submit or
// Cancel command produces. The matcher builds one of these entirely in
// memory and hands it to Store.AtomicApply as a single logical
// transaction.
type ChangeSet struct {
	Symbol       common.Symbol
	Orders       []common.Order // hash writes: full order record upserts
	Trades       []common.Trade // append-only log appends
	LevelWrites  []LevelWrite
	LevelDeletes []LevelDelete
	Events       []eventbus.Event // published only after a successful apply
	NextSequence common.SequenceNumber
}

// Empty reports whether the change-set has nothing to apply.
func (c ChangeSet) Empty() bool {
	return len(c.Orders) == 0 && len(c.Trades) == 0 && len(c.LevelWrites) == 0 && len(c.LevelDeletes) == 0
}

// Store is the interface the matching engine depends on. Implementations
// must apply a ChangeSet atomically: all writes commit together or not
// at all, and on success the ChangeSet's sequence counter is durably
// advanced in the same transaction.
type Store interface {
	// AtomicApply commits cs as a single logical transaction and, on
	// success, publishes cs.Events on the cross-process substrate.
	AtomicApply(ctx context.Context, cs ChangeSet) error

	// Snapshot returns a consistent view of symbol's book along with the
	// sequence number it is consistent as of.
	Snapshot(ctx context.Context, symbol common.Symbol) (book.BookSnapshot, common.SequenceNumber, error)

	// RecentTrades returns up to limit trades for symbol, newest first.
	RecentTrades(ctx context.Context, symbol common.Symbol, limit int) ([]common.Trade, error)

	// Order returns the full record for id, including terminal orders,
	// or common.ErrNotFound.
	Order(ctx context.Context, id common.OrderID) (common.Order, error)
}
