// Package adapter is the binary TCP order-entry protocol: NewOrder and
// CancelOrder requests in, ExecutionReport/ErrorReport responses out.
// Prices, stop prices, and quantities travel as fixed-point ticks;
// symbol, user ID, and dedupe key travel as length-prefixed strings.
package adapter

import (
	"encoding/binary"
	"errors"

	"github.com/fenrir-exchange/matchcore/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
)

// MessageType identifies the wire message.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

const baseHeaderLen = 2 // MessageType

// newOrderHeaderLen covers Side(1) + Type(1) + Price(8) + StopPrice(8) +
// Quantity(8) + SymbolLen(2) + UserIDLen(2) + DedupeKeyLen(2).
const newOrderHeaderLen = 1 + 1 + 8 + 8 + 8 + 2 + 2 + 2

// cancelOrderHeaderLen covers OrderID(8) + UserIDLen(2).
const cancelOrderHeaderLen = 8 + 2

// NewOrderRequest is the parsed form of a NewOrder wire message.
type NewOrderRequest struct {
	Side      common.Side
	Type      common.OrderType
	Price     common.Price
	StopPrice common.Price
	Quantity  common.Quantity
	Symbol    common.Symbol
	UserID    string
	DedupeKey string
}

// CancelOrderRequest is the parsed form of a CancelOrder wire message.
type CancelOrderRequest struct {
	OrderID common.OrderID
	UserID  string
}

// ParseMessage reads the 2-byte type header and dispatches to the
// matching request parser.
func ParseMessage(msg []byte) (MessageType, any, error) {
	if len(msg) < baseHeaderLen {
		return 0, nil, ErrMessageTooShort
	}
	typ := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typ {
	case NewOrder:
		req, err := parseNewOrder(body)
		return typ, req, err
	case CancelOrder:
		req, err := parseCancelOrder(body)
		return typ, req, err
	case Heartbeat:
		return typ, nil, nil
	default:
		return 0, nil, ErrInvalidMessageType
	}
}

func parseNewOrder(b []byte) (NewOrderRequest, error) {
	if len(b) < newOrderHeaderLen {
		return NewOrderRequest{}, ErrMessageTooShort
	}
	req := NewOrderRequest{
		Side:      common.Side(b[0]),
		Type:      common.OrderType(b[1]),
		Price:     common.Price(int64(binary.BigEndian.Uint64(b[2:10]))),
		StopPrice: common.Price(int64(binary.BigEndian.Uint64(b[10:18]))),
		Quantity:  common.Quantity(int64(binary.BigEndian.Uint64(b[18:26]))),
	}
	symbolLen := binary.BigEndian.Uint16(b[26:28])
	userIDLen := binary.BigEndian.Uint16(b[28:30])
	dedupeLen := binary.BigEndian.Uint16(b[30:32])

	off := newOrderHeaderLen
	if len(b) < off+int(symbolLen)+int(userIDLen)+int(dedupeLen) {
		return NewOrderRequest{}, ErrMessageTooShort
	}
	req.Symbol = common.Symbol(b[off : off+int(symbolLen)])
	off += int(symbolLen)
	req.UserID = string(b[off : off+int(userIDLen)])
	off += int(userIDLen)
	req.DedupeKey = string(b[off : off+int(dedupeLen)])
	return req, nil
}

func parseCancelOrder(b []byte) (CancelOrderRequest, error) {
	if len(b) < cancelOrderHeaderLen {
		return CancelOrderRequest{}, ErrMessageTooShort
	}
	orderID := common.OrderID(binary.BigEndian.Uint64(b[0:8]))
	userIDLen := binary.BigEndian.Uint16(b[8:10])
	if len(b) < cancelOrderHeaderLen+int(userIDLen) {
		return CancelOrderRequest{}, ErrMessageTooShort
	}
	userID := string(b[cancelOrderHeaderLen : cancelOrderHeaderLen+int(userIDLen)])
	return CancelOrderRequest{OrderID: orderID, UserID: userID}, nil
}
