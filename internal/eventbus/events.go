// Package eventbus is the in-process publisher of typed {OrderChanged,
// TradeExecuted, BookChanged} events keyed by symbol, delivering to local
// subscription-gateway sessions in strict per-symbol order. Cross-process
// delivery is the durable state store's job (internal/store), which
// republishes the same events over Redis PUBLISH on successful atomic
// apply.
package eventbus

import (
	"fmt"
	"time"

	"github.com/fenrir-exchange/matchcore/internal/book"
	"github.com/fenrir-exchange/matchcore/internal/common"
)

// EventKind is one of the three typed events the bus delivers.
type EventKind uint8

const (
	OrderChanged EventKind = iota
	TradeExecuted
	BookChanged
)

func (k EventKind) String() string {
	switch k {
	case OrderChanged:
		return "order_updates"
	case TradeExecuted:
		return "trade_executions"
	case BookChanged:
		return "book_changes"
	default:
		return "unknown"
	}
}

// WireTopic is the externally-facing channel name for this event kind
// ("order_updates:{symbol}", ...), used as the cross-process Redis
// PUBLISH channel in internal/store.
func (k EventKind) WireTopic(symbol common.Symbol) string {
	return fmt.Sprintf("%s:%s", k, symbol)
}

// Event is one state-changing notification. Every event carries symbol,
// a monotone per-symbol sequence, a timestamp, and a typed payload;
// exactly one of Order/Trade/Book is set, matching Kind.
type Event struct {
	Symbol    common.Symbol      `json:"symbol"`
	Sequence  common.SequenceNumber `json:"sequence"`
	Timestamp time.Time          `json:"timestamp"`
	Kind      EventKind          `json:"kind"`
	Order     *common.Order      `json:"order,omitempty"`
	Trade     *common.Trade      `json:"trade,omitempty"`
	Book      *book.BookSnapshot `json:"book,omitempty"`
}

// OrderChangedEvent builds an OrderChanged event, emitted on every
// terminal or resting transition an order goes through.
func OrderChangedEvent(seq common.SequenceNumber, now time.Time, order common.Order) Event {
	return Event{Symbol: order.Symbol, Sequence: seq, Timestamp: now, Kind: OrderChanged, Order: &order}
}

// TradeExecutedEvent builds a TradeExecuted event.
func TradeExecutedEvent(seq common.SequenceNumber, now time.Time, trade common.Trade) Event {
	return Event{Symbol: trade.Symbol, Sequence: seq, Timestamp: now, Kind: TradeExecuted, Trade: &trade}
}

// BookChangedEvent builds a BookChanged event carrying the post-command
// top-of-book snapshot.
func BookChangedEvent(seq common.SequenceNumber, now time.Time, symbol common.Symbol, snap book.BookSnapshot) Event {
	return Event{Symbol: symbol, Sequence: seq, Timestamp: now, Kind: BookChanged, Book: &snap}
}
