package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenrir-exchange/matchcore/internal/common"
	"github.com/fenrir-exchange/matchcore/internal/eventbus"
	"github.com/fenrir-exchange/matchcore/internal/store"
)

const testSymbol common.Symbol = "BTC-USD"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(func() { _ = bus.Close() })
	e := New([]common.Symbol{testSymbol}, store.NewMemoryStore(), bus)
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func limitOrder(userID string, side common.Side, price, qty int64) common.Order {
	return common.Order{
		UserID:   userID,
		Symbol:   testSymbol,
		Side:     side,
		Type:     common.Limit,
		Price:    common.Price(price),
		Original: common.Quantity(qty),
	}
}

func marketOrder(userID string, side common.Side, qty int64) common.Order {
	return common.Order{
		UserID:   userID,
		Symbol:   testSymbol,
		Side:     side,
		Type:     common.Market,
		Original: common.Quantity(qty),
	}
}

func TestSubmit_CrossesAtRestingMakerPrice(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	maker, _, err := e.Submit(ctx, limitOrder("alice", common.Sell, 100, 10))
	require.NoError(t, err)
	assert.Equal(t, common.Pending, maker.Status)

	taker, trades, err := e.Submit(ctx, limitOrder("bob", common.Buy, 100, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.Price(100), trades[0].Price, "trade executes at the resting maker's price")
	assert.Equal(t, common.Filled, taker.Status)

	snap, err := e.OrderBookSnapshot(testSymbol, 10)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
}

func TestSubmit_SweepsMultipleLevels(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Submit(ctx, limitOrder("a1", common.Sell, 100, 5))
	require.NoError(t, err)
	_, _, err = e.Submit(ctx, limitOrder("a2", common.Sell, 101, 5))
	require.NoError(t, err)

	taker, trades, err := e.Submit(ctx, limitOrder("bob", common.Buy, 101, 8))
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, common.Price(100), trades[0].Price)
	assert.Equal(t, common.Price(101), trades[1].Price)
	assert.Equal(t, common.Quantity(8), taker.Filled)

	snap, err := e.OrderBookSnapshot(testSymbol, 10)
	require.NoError(t, err)
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, common.Quantity(2), snap.Asks[0].TotalQuantity)
}

func TestSubmit_TimePriorityWithinLevel(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, _, err := e.Submit(ctx, limitOrder("first", common.Sell, 100, 5))
	require.NoError(t, err)
	_, _, err = e.Submit(ctx, limitOrder("second", common.Sell, 100, 5))
	require.NoError(t, err)

	_, trades, err := e.Submit(ctx, limitOrder("taker", common.Buy, 100, 5))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, first.ID, trades[0].MakerOrder, "earlier-arrived order at the same price fills first")
}

func TestCancel_RemovesRestingOrderAndEmitsTerminalEvent(t *testing.T) {
	ctx := context.Background()

	bus := eventbus.New()
	defer bus.Close()
	eng := New([]common.Symbol{testSymbol}, store.NewMemoryStore(), bus)
	defer eng.Shutdown()

	stream, err := bus.Subscribe(ctx, testSymbol)
	require.NoError(t, err)

	o, _, err := eng.Submit(ctx, limitOrder("alice", common.Buy, 100, 5))
	require.NoError(t, err)

	status, err := eng.Cancel(ctx, "alice", o.ID)
	require.NoError(t, err)
	assert.Equal(t, common.Cancelled, status)

	snap, err := eng.OrderBookSnapshot(testSymbol, 10)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)

	sawCancelled := false
	for i := 0; i < 8; i++ {
		select {
		case ev := <-stream:
			if ev.Kind == eventbus.OrderChanged && ev.Order.ID == o.ID && ev.Order.Status == common.Cancelled {
				sawCancelled = true
			}
		default:
		}
		if sawCancelled {
			break
		}
	}
	assert.True(t, sawCancelled, "cancel emits a terminal OrderChanged event")
}

func TestCancel_AlreadyTerminalIsRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	o, _, err := e.Submit(ctx, limitOrder("alice", common.Sell, 100, 5))
	require.NoError(t, err)
	_, err = e.Cancel(ctx, "alice", o.ID)
	require.NoError(t, err)

	_, err = e.Cancel(ctx, "alice", o.ID)
	assert.Equal(t, common.KindAlreadyTerminal, common.KindOf(err))
}

func TestCancel_WrongOwnerIsRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	o, _, err := e.Submit(ctx, limitOrder("alice", common.Sell, 100, 5))
	require.NoError(t, err)

	_, err = e.Cancel(ctx, "mallory", o.ID)
	assert.Equal(t, common.KindNotOwned, common.KindOf(err))
}

func TestSubmit_MarketWithNoLiquidityIsRejected(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	o, trades, err := e.Submit(ctx, marketOrder("bob", common.Buy, 10))
	require.Error(t, err)
	assert.Equal(t, common.KindNoLiquidity, common.KindOf(err))
	assert.Equal(t, common.Rejected, o.Status)
	assert.Empty(t, trades)
}

func TestSubmit_StopOrderTriggersOnLastTradePrice(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Submit(ctx, limitOrder("maker", common.Sell, 100, 20))
	require.NoError(t, err)

	stop := common.Order{
		UserID:    "stopper",
		Symbol:    testSymbol,
		Side:      common.Buy,
		Type:      common.Stop,
		Original:  5,
		StopPrice: 100,
	}
	placed, _, err := e.Submit(ctx, stop)
	require.NoError(t, err)
	assert.Equal(t, common.Pending, placed.Status)

	_, trades, err := e.Submit(ctx, limitOrder("taker", common.Buy, 100, 10))
	require.NoError(t, err)
	// one trade for the taker, one for the triggered stop converted to market
	require.Len(t, trades, 2)

	stopped, err := e.Order(placed.ID)
	require.NoError(t, err)
	assert.Equal(t, common.Filled, stopped.Status)
	assert.Equal(t, common.Market, stopped.Type)
}

func TestBookNeverEndsCrossed(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Submit(ctx, limitOrder("a", common.Sell, 100, 5))
	require.NoError(t, err)
	_, _, err = e.Submit(ctx, limitOrder("b", common.Buy, 99, 5))
	require.NoError(t, err)

	w := e.workers[testSymbol]
	assert.False(t, w.book.Crossed())
}
