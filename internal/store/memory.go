package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fenrir-exchange/matchcore/internal/book"
	"github.com/fenrir-exchange/matchcore/internal/common"
)

// MemoryStore is a plain-map, mutex-guarded Store used in package tests
// so they don't require a live Redis. It deliberately has no third-party
// backing (see DESIGN.md). It is also the store cmd/server runs with
// under the default config (store: memory); nothing it holds survives a
// process restart.
type MemoryStore struct {
	mu       sync.Mutex
	orders   map[common.OrderID]common.Order
	trades   map[common.Symbol][]common.Trade
	books    map[common.Symbol]book.BookSnapshot
	sequence map[common.Symbol]common.SequenceNumber
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[common.OrderID]common.Order),
		trades:   make(map[common.Symbol][]common.Trade),
		books:    make(map[common.Symbol]book.BookSnapshot),
		sequence: make(map[common.Symbol]common.SequenceNumber),
	}
}

func (m *MemoryStore) AtomicApply(ctx context.Context, cs ChangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range cs.Orders {
		m.orders[o.ID] = o
	}
	m.trades[cs.Symbol] = append(m.trades[cs.Symbol], cs.Trades...)
	m.sequence[cs.Symbol] = cs.NextSequence
	return nil
}

func (m *MemoryStore) Snapshot(ctx context.Context, symbol common.Symbol) (book.BookSnapshot, common.SequenceNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[symbol], m.sequence[symbol], nil
}

// SetBookSnapshot lets the engine publish its latest in-memory book view
// for Snapshot to serve; the engine is the source of truth for book
// shape, the store only mirrors it durably.
func (m *MemoryStore) SetBookSnapshot(symbol common.Symbol, snap book.BookSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[symbol] = snap
}

func (m *MemoryStore) RecentTrades(ctx context.Context, symbol common.Symbol, limit int) ([]common.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.trades[symbol]
	out := make([]common.Trade, len(all))
	copy(out, all)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Order(ctx context.Context, id common.OrderID) (common.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return common.Order{}, common.ErrNotFound
	}
	return o, nil
}
