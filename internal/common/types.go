// Package common holds the types shared by every layer of the matching
// core: symbols, fixed-point price/quantity ticks, sides, order types and
// statuses, and the order/trade records themselves.
package common

import (
	"fmt"
	"strconv"
	"strings"
)

// TickScale is the fixed-point scale used for both Price and Quantity:
// one tick is 10^-8 of a unit. All arithmetic inside the core stays in
// this integer representation; floating point is only permitted at the
// JSON wire boundary, and only if it round-trips exactly.
const TickScale = 100_000_000

// Symbol identifies a trading pair, e.g. "BTC-USD". Symbols partition all
// state in the core: every order book, matching worker, and event stream
// is keyed by exactly one Symbol.
type Symbol string

// Price is a fixed-point price in ticks (1 tick = 10^-8).
type Price int64

// Quantity is a fixed-point quantity in ticks (1 tick = 10^-8). Quantity
// is never negative.
type Quantity int64

// String renders p as a decimal string with 8 fractional digits, the
// same representation used on the wire.
func (p Price) String() string {
	return formatTicks(int64(p))
}

// MarshalJSON renders p as a decimal string with up to 8 fractional
// digits, never as a JSON number, so large tick values never lose
// precision to a float64 round trip.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(formatTicks(int64(p)))), nil
}

// UnmarshalJSON parses a decimal string (or a bare integer, for callers
// that still send ticks directly) into a Price.
func (p *Price) UnmarshalJSON(data []byte) error {
	v, err := parseTicks(data)
	if err != nil {
		return err
	}
	*p = Price(v)
	return nil
}

// String renders q as a decimal string with 8 fractional digits.
func (q Quantity) String() string {
	return formatTicks(int64(q))
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(formatTicks(int64(q)))), nil
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	v, err := parseTicks(data)
	if err != nil {
		return err
	}
	*q = Quantity(v)
	return nil
}

// formatTicks renders an integer tick count as a decimal string with
// exactly 8 fractional digits, e.g. 5000000000 -> "50.00000000".
func formatTicks(ticks int64) string {
	neg := ticks < 0
	if neg {
		ticks = -ticks
	}
	whole := ticks / TickScale
	frac := ticks % TickScale
	s := fmt.Sprintf("%d.%08d", whole, frac)
	if neg {
		s = "-" + s
	}
	return s
}

// parseTicks accepts either a quoted decimal string ("50.00000000") or a
// bare JSON integer (5000000000) and returns the tick count.
func parseTicks(data []byte) (int64, error) {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	if !strings.Contains(s, ".") {
		return strconv.ParseInt(s, 10, 64)
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	parts := strings.SplitN(s, ".", 2)
	whole, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse tick value %q: %w", s, err)
	}
	fracStr := parts[1]
	if len(fracStr) > 8 {
		return 0, fmt.Errorf("parse tick value %q: more than 8 fractional digits", s)
	}
	for len(fracStr) < 8 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse tick value %q: %w", s, err)
	}
	v := whole*TickScale + frac
	if neg {
		v = -v
	}
	return v, nil
}

// Side is which side of the book an order rests on or trades against.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

func (s *Side) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "buy":
		*s = Buy
	case "sell":
		*s = Sell
	default:
		return fmt.Errorf("unknown side %s", data)
	}
	return nil
}

// OrderType distinguishes how an order interacts with the book.
type OrderType uint8

const (
	Market OrderType = iota
	Limit
	Stop
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *OrderType) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "market":
		*t = Market
	case "limit":
		*t = Limit
	case "stop":
		*t = Stop
	default:
		return fmt.Errorf("unknown order type %s", data)
	}
	return nil
}

// OrderStatus is the lifecycle state of an order. Legal transitions are
// Pending -> {PartiallyFilled, Filled, Cancelled, Rejected};
// PartiallyFilled -> {PartiallyFilled, Filled, Cancelled}. Filled,
// Cancelled, and Rejected are terminal. Order.Fill and Order.Terminalize
// set the status without checking the current one; callers only invoke
// them on transitions from this list.
type OrderStatus uint8

const (
	Pending OrderStatus = iota
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

func (s OrderStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status can never transition again.
func (s OrderStatus) Terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "pending":
		*s = Pending
	case "partially_filled":
		*s = PartiallyFilled
	case "filled":
		*s = Filled
	case "cancelled":
		*s = Cancelled
	case "rejected":
		*s = Rejected
	default:
		return fmt.Errorf("unknown order status %s", data)
	}
	return nil
}

// OrderID is a monotone, per-process 64-bit order identifier assigned at
// submit time.
type OrderID uint64

// TradeID is a monotone, per-symbol 64-bit trade identifier.
type TradeID uint64

// SequenceNumber is a monotone, per-symbol, contiguous-from-1 event
// sequence number.
type SequenceNumber uint64
