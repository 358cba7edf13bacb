package adapter

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenrir-exchange/matchcore/internal/common"
)

func encodeNewOrder(t *testing.T, req NewOrderRequest) []byte {
	t.Helper()
	symbol := []byte(req.Symbol)
	userID := []byte(req.UserID)
	dedupe := []byte(req.DedupeKey)

	body := make([]byte, 0, newOrderHeaderLen+len(symbol)+len(userID)+len(dedupe))
	body = append(body, byte(req.Side), byte(req.Type))
	body = appendUint64ForTest(body, uint64(req.Price))
	body = appendUint64ForTest(body, uint64(req.StopPrice))
	body = appendUint64ForTest(body, uint64(req.Quantity))
	body = appendUint16ForTest(body, uint16(len(symbol)))
	body = appendUint16ForTest(body, uint16(len(userID)))
	body = appendUint16ForTest(body, uint16(len(dedupe)))
	body = append(body, symbol...)
	body = append(body, userID...)
	body = append(body, dedupe...)

	msg := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(msg[0:2], uint16(NewOrder))
	copy(msg[2:], body)
	return msg
}

func appendUint64ForTest(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUint16ForTest(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func TestParseMessage_NewOrderRoundTrips(t *testing.T) {
	want := NewOrderRequest{
		Side:      common.Sell,
		Type:      common.Limit,
		Price:     5_000_000_000,
		StopPrice: 0,
		Quantity:  100_000_000,
		Symbol:    "BTC-USD",
		UserID:    "alice",
		DedupeKey: "req-1",
	}

	typ, parsed, err := ParseMessage(encodeNewOrder(t, want))
	require.NoError(t, err)
	assert.Equal(t, NewOrder, typ)
	assert.Equal(t, want, parsed.(NewOrderRequest))
}

func TestParseMessage_TooShortIsRejected(t *testing.T) {
	_, _, err := ParseMessage([]byte{0})
	assert.ErrorIs(t, err, ErrMessageTooShort)

	msg := make([]byte, 2+newOrderHeaderLen-1)
	binary.BigEndian.PutUint16(msg[0:2], uint16(NewOrder))
	_, _, err = ParseMessage(msg)
	assert.ErrorIs(t, err, ErrMessageTooShort)
}

func TestParseMessage_UnknownTypeIsRejected(t *testing.T) {
	msg := make([]byte, 2)
	binary.BigEndian.PutUint16(msg[0:2], 999)
	_, _, err := ParseMessage(msg)
	assert.ErrorIs(t, err, ErrInvalidMessageType)
}

func TestParseMessage_CancelOrderRoundTrips(t *testing.T) {
	userID := []byte("bob")
	body := make([]byte, 0, cancelOrderHeaderLen+len(userID))
	body = appendUint64ForTest(body, 42)
	body = appendUint16ForTest(body, uint16(len(userID)))
	body = append(body, userID...)

	msg := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(msg[0:2], uint16(CancelOrder))
	copy(msg[2:], body)

	typ, parsed, err := ParseMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, CancelOrder, typ)
	req := parsed.(CancelOrderRequest)
	assert.Equal(t, common.OrderID(42), req.OrderID)
	assert.Equal(t, "bob", req.UserID)
}

func TestSerializeExecutionReport_EncodesTradeCount(t *testing.T) {
	order := common.Order{ID: 7, Status: common.Filled, Filled: 10, Original: 10}
	trades := []common.Trade{{ID: 1, Price: 100, Quantity: 10, MakerOrder: 3, TakerOrder: 7}}

	buf := SerializeExecutionReport(order, trades)
	assert.Equal(t, byte(ExecutionReport), buf[0])
	numTrades := binary.BigEndian.Uint16(buf[1+8+1+8+8 : 1+8+1+8+8+2])
	assert.Equal(t, uint16(1), numTrades)
}

func TestSerializeErrorReport_EncodesKindAndMessage(t *testing.T) {
	buf := SerializeErrorReport(common.ErrNotFound)
	assert.Equal(t, byte(ErrorReport), buf[0])
	assert.Equal(t, byte(common.KindNotFound), buf[1])
}
