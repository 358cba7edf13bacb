package engine

import (
	"time"

	"github.com/fenrir-exchange/matchcore/internal/book"
	"github.com/fenrir-exchange/matchcore/internal/common"
	"github.com/fenrir-exchange/matchcore/internal/eventbus"
	"github.com/fenrir-exchange/matchcore/internal/store"
)

// matchOne runs a single taker order against the resting book until it is
// either fully filled, rests, or is rejected, appending every trade and
// order/book-level effect onto cs and trades. It returns any stop orders
// the trades it produced triggered, so the caller can feed them back
// through the same mechanism within the same command.
func (w *symbolWorker) matchOne(taker *common.Order, eligibleStops []common.OrderID, cs *store.ChangeSet, trades *[]common.Trade, now time.Time) []*common.Order {
	var triggered []*common.Order

	for taker.Remaining() > 0 {
		lvl, ok := w.book.BestMakerLevel(taker.Side)
		if !ok {
			break
		}
		if taker.Type == common.Limit {
			var crossed bool
			if taker.Side == common.Buy {
				crossed = lvl.Price <= taker.Price
			} else {
				crossed = lvl.Price >= taker.Price
			}
			if !crossed {
				break
			}
		}

		maker := lvl.Head()
		if maker == nil {
			break
		}
		qty := taker.Remaining()
		if maker.Remaining() < qty {
			qty = maker.Remaining()
		}

		trade := common.Trade{
			ID:         w.nextTradeID(),
			Symbol:     w.symbol,
			Quantity:   qty,
			Price:      lvl.Price,
			ExecutedAt: now,
			MakerOrder: maker.ID,
			TakerOrder: taker.ID,
		}
		if taker.Side == common.Buy {
			trade.BuyOrderID, trade.SellOrderID = taker.ID, maker.ID
		} else {
			trade.BuyOrderID, trade.SellOrderID = maker.ID, taker.ID
		}

		maker.Fill(qty, now)
		taker.Fill(qty, now)
		w.book.SettleMakerFill(lvl, maker, qty)

		*trades = append(*trades, trade)
		cs.Trades = append(cs.Trades, trade)
		cs.Orders = append(cs.Orders, *maker)
		cs.Events = append(cs.Events, eventbus.TradeExecutedEvent(w.nextEventSeq(), now, trade))
		if maker.Status.Terminal() {
			cs.Events = append(cs.Events, eventbus.OrderChangedEvent(w.nextEventSeq(), now, *maker))
		}
		w.records[maker.ID] = maker

		if lvl.Empty() {
			cs.LevelDeletes = append(cs.LevelDeletes, store.LevelDelete{Side: lvl.Side, Price: lvl.Price})
		} else {
			cs.LevelWrites = append(cs.LevelWrites, levelWriteFrom(lvl))
		}

		triggered = append(triggered, w.stops.triggeredBy(trade.Price, eligibleStops)...)
	}

	switch {
	case taker.Remaining() == 0:
		// Fill already moved the status to Filled.
	case taker.Type == common.Limit:
		taker.Status = common.Pending
		if taker.Filled > 0 {
			taker.Status = common.PartiallyFilled
		}
		taker.Sequence = w.nextOrderSeq()
		w.book.InsertLimit(taker)
		if restingLvl, ok := w.book.Side(taker.Side).Get(taker.Price); ok {
			cs.LevelWrites = append(cs.LevelWrites, levelWriteFrom(restingLvl))
		}
	default:
		// Market order (or a triggered stop converted to one): it never
		// rests. Partial liquidity leaves it partially filled; none at
		// all is NoLiquidity.
		if taker.Filled > 0 {
			taker.Status = common.PartiallyFilled
			taker.UpdatedAt = now
		} else {
			taker.Terminalize(common.Rejected, now)
		}
	}

	cs.Orders = append(cs.Orders, *taker)
	cs.Events = append(cs.Events, eventbus.OrderChangedEvent(w.nextEventSeq(), now, *taker))
	w.records[taker.ID] = taker

	return triggered
}

func levelWriteFrom(lvl *book.PriceLevel) store.LevelWrite {
	orders := lvl.Orders()
	ids := make([]common.OrderID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return store.LevelWrite{
		Side:          lvl.Side,
		Price:         lvl.Price,
		TotalQuantity: lvl.TotalQuantity(),
		OrderCount:    lvl.OrderCount(),
		OrderIDs:      ids,
	}
}
