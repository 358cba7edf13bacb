package common

import (
	"fmt"
	"time"
)

// Trade is an append-only execution record. Invariants: Price equals the
// maker's limit price at execution; Quantity is positive and
// <= min(buy.remaining_before, sell.remaining_before); ExecutedAt is
// non-decreasing per symbol.
type Trade struct {
	ID          TradeID        `json:"id"`
	Symbol      Symbol         `json:"symbol"`
	BuyOrderID  OrderID        `json:"buy_order_id"`
	SellOrderID OrderID        `json:"sell_order_id"`
	MakerOrder  OrderID        `json:"maker_order_id"`
	TakerOrder  OrderID        `json:"taker_order_id"`
	Quantity    Quantity       `json:"quantity"`
	Price       Price          `json:"price"`
	ExecutedAt  time.Time      `json:"executed_at"`
	Sequence    SequenceNumber `json:"sequence,omitempty"`
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{id=%d symbol=%s buy=%d sell=%d maker=%d taker=%d qty=%d price=%d seq=%d}",
		t.ID, t.Symbol, t.BuyOrderID, t.SellOrderID, t.MakerOrder, t.TakerOrder,
		t.Quantity, t.Price, t.Sequence,
	)
}
