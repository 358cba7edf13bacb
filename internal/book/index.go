package book

import "github.com/fenrir-exchange/matchcore/internal/common"

// location is where a resting order can be found: which side, which
// price level, and which user placed it.
type location struct {
	symbol common.Symbol
	side   common.Side
	price  common.Price
	userID string
}

// OrderIndex maps the id of each resting order to its location. It is
// kept in step with the book on insert, fill and removal; Cancel finds
// the order through the engine's order records (see
// OrderBook.RemoveResting), not through this index.
type OrderIndex struct {
	byID map[common.OrderID]location
}

func newOrderIndex() *OrderIndex {
	return &OrderIndex{byID: make(map[common.OrderID]location)}
}

func (idx *OrderIndex) put(o *common.Order) {
	idx.byID[o.ID] = location{symbol: o.Symbol, side: o.Side, price: o.Price, userID: o.UserID}
}

func (idx *OrderIndex) get(id common.OrderID) (location, bool) {
	loc, ok := idx.byID[id]
	return loc, ok
}

func (idx *OrderIndex) delete(id common.OrderID) {
	delete(idx.byID, id)
}

func (idx *OrderIndex) len() int {
	return len(idx.byID)
}
