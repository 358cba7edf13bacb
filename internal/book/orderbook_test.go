package book

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenrir-exchange/matchcore/internal/common"
)

const testSymbol common.Symbol = "BTC-USD"

func restingOrder(id common.OrderID, side common.Side, price common.Price, qty common.Quantity) *common.Order {
	return &common.Order{
		ID:       id,
		UserID:   "u",
		Symbol:   testSymbol,
		Side:     side,
		Type:     common.Limit,
		Original: qty,
		Price:    price,
		Status:   common.Pending,
	}
}

func TestInsertLimit_OrdersByPriceThenTime(t *testing.T) {
	b := New(testSymbol)

	b.InsertLimit(restingOrder(1, common.Buy, 99_00000000, 100))
	b.InsertLimit(restingOrder(2, common.Buy, 99_00000000, 50))
	b.InsertLimit(restingOrder(3, common.Buy, 100_00000000, 10))

	price, qty, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, common.Price(100_00000000), price)
	assert.Equal(t, common.Quantity(10), qty)

	lvl, ok := b.Side(common.Buy).Get(99_00000000)
	require.True(t, ok)
	assert.Equal(t, 2, lvl.OrderCount())
	assert.Equal(t, common.Quantity(150), lvl.TotalQuantity())
	assert.Equal(t, common.OrderID(1), lvl.Head().ID, "time priority: earlier arrival is head")
}

func TestSettleMakerFill_PopsOnFullFill(t *testing.T) {
	b := New(testSymbol)
	maker := restingOrder(1, common.Sell, 100_00000000, 10)
	b.InsertLimit(maker)

	lvl, ok := b.BestMakerLevel(common.Buy)
	require.True(t, ok)

	maker.Fill(10, time.Unix(0, 0))
	b.SettleMakerFill(lvl, maker, 10)

	_, ok = b.BestAsk()
	assert.False(t, ok, "level should be deleted once its only order fills")
}

func TestSettleMakerFill_PartialFillKeepsHead(t *testing.T) {
	b := New(testSymbol)
	maker := restingOrder(1, common.Sell, 100_00000000, 10)
	b.InsertLimit(maker)

	lvl, _ := b.BestMakerLevel(common.Buy)
	maker.Fill(4, time.Unix(0, 0))
	b.SettleMakerFill(lvl, maker, 4)

	price, qty, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, common.Price(100_00000000), price)
	assert.Equal(t, common.Quantity(6), qty)
	assert.Equal(t, common.OrderID(1), lvl.Head().ID)
}

func TestRemoveResting_CancelsAndCleansUpEmptyLevel(t *testing.T) {
	b := New(testSymbol)
	o := restingOrder(7, common.Buy, 100_00000000, 1)
	b.InsertLimit(o)

	assert.True(t, b.RemoveResting(o))
	_, ok := b.BestBid()
	assert.False(t, ok)

	assert.False(t, b.RemoveResting(o), "second removal finds nothing left to remove")
}

func TestCrossed_FalseWhenOneSideEmptyOrSeparated(t *testing.T) {
	b := New(testSymbol)
	assert.False(t, b.Crossed())

	b.InsertLimit(restingOrder(1, common.Buy, 99_00000000, 1))
	assert.False(t, b.Crossed())

	b.InsertLimit(restingOrder(2, common.Sell, 100_00000000, 1))
	assert.False(t, b.Crossed())
}

func TestSnapshot_ReturnsNonEmptyLevelsInPriorityOrder(t *testing.T) {
	b := New(testSymbol)
	b.InsertLimit(restingOrder(1, common.Sell, 101_00000000, 20))
	b.InsertLimit(restingOrder(2, common.Sell, 100_00000000, 10))
	b.InsertLimit(restingOrder(3, common.Buy, 99_00000000, 5))

	snap := b.Snapshot(10)
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, common.Price(100_00000000), snap.Asks[0].Price, "best ask first")
	assert.Equal(t, common.Price(101_00000000), snap.Asks[1].Price)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, common.Price(99_00000000), snap.Bids[0].Price)
}
