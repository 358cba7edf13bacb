package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenrir-exchange/matchcore/internal/book"
	"github.com/fenrir-exchange/matchcore/internal/common"
)

func TestMemoryStore_AtomicApplyPersistsOrdersTradesAndSequence(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	cs := ChangeSet{
		Symbol:      "BTC-USD",
		Orders:      []common.Order{{ID: 1, Symbol: "BTC-USD", Status: common.Filled}},
		Trades:      []common.Trade{{ID: 1, Symbol: "BTC-USD"}},
		NextSequence: 5,
	}
	require.NoError(t, m.AtomicApply(ctx, cs))

	o, err := m.Order(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, common.Filled, o.Status)

	trades, err := m.RecentTrades(ctx, "BTC-USD", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	_, seq, err := m.Snapshot(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, common.SequenceNumber(5), seq)
}

func TestMemoryStore_OrderNotFound(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.Order(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryStore_SetBookSnapshotIsServedBySnapshot(t *testing.T) {
	m := NewMemoryStore()
	snap := book.BookSnapshot{Symbol: "BTC-USD"}
	m.SetBookSnapshot("BTC-USD", snap)

	got, _, err := m.Snapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestMemoryStore_RecentTradesOrderedNewestFirstAndLimited(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, m.AtomicApply(ctx, ChangeSet{
		Symbol: "BTC-USD",
		Trades: []common.Trade{{ID: 1}, {ID: 2}, {ID: 3}},
	}))

	trades, err := m.RecentTrades(ctx, "BTC-USD", 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, common.TradeID(3), trades[0].ID)
	assert.Equal(t, common.TradeID(2), trades[1].ID)
}
