package gateway

import (
	"github.com/fenrir-exchange/matchcore/internal/book"
	"github.com/fenrir-exchange/matchcore/internal/common"
)

// Inbound message types a session accepts over its websocket connection.
const (
	InboundPing            = "ping"
	InboundGetOrderBook    = "get_order_book"
	InboundGetRecentTrades = "get_recent_trades"
)

// InboundMessage is the wire shape of a client request. Symbol/Depth/
// Limit are only meaningful for the request types that use them.
type InboundMessage struct {
	Type   string        `json:"type"`
	Symbol common.Symbol `json:"symbol,omitempty"`
	Depth  int           `json:"depth,omitempty"`
	Limit  int           `json:"limit,omitempty"`
}

// Outbound message types a session may push to the client.
const (
	OutboundPong             = "pong"
	OutboundOrderBookSnap    = "order_book_snapshot"
	OutboundOrderUpdate      = "order_update"
	OutboundTradeExecution   = "trade_execution"
	OutboundBookChange       = "book_change"
	OutboundRecentTrades     = "recent_trades"
	OutboundError            = "error"
)

// OutboundMessage is the wire shape of everything a session sends. Only
// the fields relevant to Type are populated.
type OutboundMessage struct {
	Type      string                 `json:"type"`
	Sequence  common.SequenceNumber  `json:"sequence,omitempty"`
	Symbol    common.Symbol          `json:"symbol,omitempty"`
	Book      *book.BookSnapshot     `json:"book,omitempty"`
	Order     *common.Order          `json:"order,omitempty"`
	Trade     *common.Trade          `json:"trade,omitempty"`
	Trades    []common.Trade         `json:"trades,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorKind string                 `json:"error_kind,omitempty"`
}

func errorMessage(err error) OutboundMessage {
	return OutboundMessage{
		Type:      OutboundError,
		Error:     err.Error(),
		ErrorKind: common.KindOf(err).String(),
	}
}
