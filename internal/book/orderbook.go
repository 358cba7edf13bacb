package book

import "github.com/fenrir-exchange/matchcore/internal/common"

// OrderBook packages both BookSides for one symbol plus the OrderIndex.
// It holds only resting orders; the matching engine keeps the full
// order-record history (including terminal orders) separately so that
// Cancel can distinguish NotFound from AlreadyTerminal.
type OrderBook struct {
	Symbol common.Symbol
	bids   *BookSide
	asks   *BookSide
	index  *OrderIndex
}

// New creates an empty order book for symbol.
func New(symbol common.Symbol) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   newBookSide(symbol, common.Buy),
		asks:   newBookSide(symbol, common.Sell),
		index:  newOrderIndex(),
	}
}

// Side returns the BookSide for s.
func (b *OrderBook) Side(s common.Side) *BookSide {
	if s == common.Buy {
		return b.bids
	}
	return b.asks
}

// BestMakerLevel returns the best resting level an incoming order on
// takerSide would match against.
func (b *OrderBook) BestMakerLevel(takerSide common.Side) (*PriceLevel, bool) {
	return b.Side(takerSide.Opposite()).BestLevel()
}

// InsertLimit rests o on its own side at its limit price, at the tail of
// that price level, as the newest maker there.
func (b *OrderBook) InsertLimit(o *common.Order) {
	lvl := b.Side(o.Side).LevelAt(o.Price)
	lvl.Append(o)
	b.index.put(o)
}

// SettleMakerFill applies a fill of qty against the maker resting at the
// head of lvl, popping it from the level (and the index) if it is now
// fully filled, and deleting the level if it is now empty. The caller is
// responsible for calling maker.Fill(qty, now) first.
func (b *OrderBook) SettleMakerFill(lvl *PriceLevel, maker *common.Order, qty common.Quantity) {
	lvl.ReduceQuantity(qty)
	if maker.Remaining() == 0 {
		lvl.PopHead()
		b.index.delete(maker.ID)
	}
	b.Side(lvl.Side).DeleteIfEmpty(lvl)
}

// RemoveResting removes o from the book (used by Cancel). It returns
// false if o was not actually resting (already matched away).
func (b *OrderBook) RemoveResting(o *common.Order) bool {
	side := b.Side(o.Side)
	lvl, ok := side.Get(o.Price)
	if !ok {
		return false
	}
	if _, ok := lvl.Remove(o.ID); !ok {
		return false
	}
	side.DeleteIfEmpty(lvl)
	b.index.delete(o.ID)
	return true
}

// BestBid returns the best bid price and its aggregate quantity.
func (b *OrderBook) BestBid() (common.Price, common.Quantity, bool) {
	lvl, ok := b.bids.BestLevel()
	if !ok {
		return 0, 0, false
	}
	return lvl.Price, lvl.TotalQuantity(), true
}

// BestAsk returns the best ask price and its aggregate quantity.
func (b *OrderBook) BestAsk() (common.Price, common.Quantity, bool) {
	lvl, ok := b.asks.BestLevel()
	if !ok {
		return 0, 0, false
	}
	return lvl.Price, lvl.TotalQuantity(), true
}

// Crossed reports whether the book is in an illegal crossed state:
// best_bid >= best_ask with both sides non-empty.
func (b *OrderBook) Crossed() bool {
	bid, _, okBid := b.BestBid()
	ask, _, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return false
	}
	return bid >= ask
}

// BookSnapshot is the public, depth-limited view of both sides of a
// book, used by order-book queries and the gateway's initial session
// snapshot.
type BookSnapshot struct {
	Symbol common.Symbol    `json:"symbol"`
	Bids   []LevelAggregate `json:"bids"`
	Asks   []LevelAggregate `json:"asks"`
}

// Snapshot returns the first depth non-empty levels of each side.
func (b *OrderBook) Snapshot(depth int) BookSnapshot {
	return BookSnapshot{
		Symbol: b.Symbol,
		Bids:   b.bids.Depth(depth),
		Asks:   b.asks.Depth(depth),
	}
}
