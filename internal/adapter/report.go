package adapter

import (
	"encoding/binary"

	"github.com/fenrir-exchange/matchcore/internal/common"
)

// ReportType identifies the response wire message.
type ReportType uint8

const (
	ExecutionReport ReportType = iota
	ErrorReport
	CancelReport
)

// SerializeExecutionReport encodes order plus the trades it produced.
func SerializeExecutionReport(order common.Order, trades []common.Trade) []byte {
	buf := make([]byte, 0, 32+len(trades)*40)
	buf = append(buf, byte(ExecutionReport))
	buf = appendUint64(buf, uint64(order.ID))
	buf = append(buf, byte(order.Status))
	buf = appendUint64(buf, uint64(order.Filled))
	buf = appendUint64(buf, uint64(order.Original))
	buf = appendUint16(buf, uint16(len(trades)))
	for _, t := range trades {
		buf = appendUint64(buf, uint64(t.ID))
		buf = appendUint64(buf, uint64(t.Price))
		buf = appendUint64(buf, uint64(t.Quantity))
		buf = appendUint64(buf, uint64(t.MakerOrder))
		buf = appendUint64(buf, uint64(t.TakerOrder))
	}
	return buf
}

// SerializeCancelReport encodes a successful cancel's resulting status.
func SerializeCancelReport(orderID common.OrderID, status common.OrderStatus) []byte {
	buf := make([]byte, 0, 10)
	buf = append(buf, byte(CancelReport))
	buf = appendUint64(buf, uint64(orderID))
	buf = append(buf, byte(status))
	return buf
}

// SerializeErrorReport encodes err's kind and message.
func SerializeErrorReport(err error) []byte {
	kind := common.KindOf(err)
	msg := err.Error()
	buf := make([]byte, 0, 4+len(msg))
	buf = append(buf, byte(ErrorReport))
	buf = append(buf, byte(kind))
	buf = appendUint16(buf, uint16(len(msg)))
	buf = append(buf, msg...)
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}
