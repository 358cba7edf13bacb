package common

import (
	"fmt"
	"time"
)

// Order is a single resting or in-flight order. Invariants:
// 0 <= Filled <= Original; Filled == Original iff Status == Filled;
// 0 < Filled < Original implies Status == PartiallyFilled; Limit orders
// carry Price, Market orders don't, Stop orders carry StopPrice until
// triggered.
type Order struct {
	ID        OrderID        `json:"id"`
	UserID    string         `json:"user_id"`
	Symbol    Symbol         `json:"symbol"`
	Side      Side           `json:"side"`
	Type      OrderType      `json:"type"`
	Original  Quantity       `json:"original_quantity"`
	Filled    Quantity       `json:"filled_quantity"`
	Price     Price          `json:"price,omitempty"`      // limit price; zero/unused for Market
	StopPrice Price          `json:"stop_price,omitempty"` // trigger price; only meaningful for Stop
	Status    OrderStatus    `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Sequence  SequenceNumber `json:"sequence,omitempty"` // assigned when the order first becomes known to the book
	DedupeKey string         `json:"dedupe_key,omitempty"` // optional client-supplied idempotency key, accepted but not enforced
}

// Remaining is the quantity still eligible to trade.
func (o *Order) Remaining() Quantity {
	return o.Original - o.Filled
}

// Fill records q additional filled quantity and updates Status per the
// legal transitions: Pending/PartiallyFilled move to Filled once Filled
// reaches Original, or to PartiallyFilled on any lesser fill. The caller
// stamps now against its own single wall-clock read for the command.
func (o *Order) Fill(q Quantity, now time.Time) {
	o.Filled += q
	o.UpdatedAt = now
	if o.Filled == o.Original {
		o.Status = Filled
	} else if o.Filled > 0 {
		o.Status = PartiallyFilled
	}
}

// Terminalize moves the order into a terminal state (Cancelled, Rejected,
// or Filled with no further fills expected) and stamps UpdatedAt.
func (o *Order) Terminalize(status OrderStatus, now time.Time) {
	o.Status = status
	o.UpdatedAt = now
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%d user=%s symbol=%s side=%s type=%s price=%d stop=%d qty=%d/%d status=%s seq=%d}",
		o.ID, o.UserID, o.Symbol, o.Side, o.Type, o.Price, o.StopPrice,
		o.Filled, o.Original, o.Status, o.Sequence,
	)
}
