package store

import "encoding/json"

// wireChangeSet is the JSON shape the applyScript Lua source expects
// (ARGV[1]): snake_case fields, sides/prices as plain strings/numbers so
// Lua's cjson can walk them without any type coercion surprises.
type wireChangeSet struct {
	Symbol       string           `json:"symbol"`
	Orders       []wireOrder      `json:"orders"`
	Trades       []wireTrade      `json:"trades"`
	LevelWrites  []wireLevelWrite `json:"level_writes"`
	LevelDeletes []wireLevelDel   `json:"level_deletes"`
	Events       []wireEvent      `json:"events"`
	NextSequence uint64           `json:"next_sequence"`
}

type wireOrder struct {
	ID     uint64 `json:"id"`
	UserID string `json:"user_id"`
	Data   string `json:"data"`
}

type wireTrade struct {
	ID   uint64 `json:"id"`
	Data string `json:"data"`
}

type wireLevelWrite struct {
	Side          string   `json:"side"`
	Price         int64    `json:"price"`
	TotalQuantity int64    `json:"total_quantity"`
	OrderCount    int      `json:"order_count"`
	OrderIDs      []uint64 `json:"order_ids"`
}

type wireLevelDel struct {
	Side  string `json:"side"`
	Price int64  `json:"price"`
}

type wireEvent struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

func marshalChangeSet(cs ChangeSet) ([]byte, error) {
	w := wireChangeSet{
		Symbol:       string(cs.Symbol),
		NextSequence: uint64(cs.NextSequence),
	}
	for _, o := range cs.Orders {
		data, err := json.Marshal(o)
		if err != nil {
			return nil, err
		}
		w.Orders = append(w.Orders, wireOrder{ID: uint64(o.ID), UserID: o.UserID, Data: string(data)})
	}
	for _, t := range cs.Trades {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		w.Trades = append(w.Trades, wireTrade{ID: uint64(t.ID), Data: string(data)})
	}
	for _, lw := range cs.LevelWrites {
		ids := make([]uint64, len(lw.OrderIDs))
		for i, id := range lw.OrderIDs {
			ids[i] = uint64(id)
		}
		w.LevelWrites = append(w.LevelWrites, wireLevelWrite{
			Side:          lw.Side.String(),
			Price:         int64(lw.Price),
			TotalQuantity: int64(lw.TotalQuantity),
			OrderCount:    lw.OrderCount,
			OrderIDs:      ids,
		})
	}
	for _, ld := range cs.LevelDeletes {
		w.LevelDeletes = append(w.LevelDeletes, wireLevelDel{Side: ld.Side.String(), Price: int64(ld.Price)})
	}
	for _, ev := range cs.Events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		w.Events = append(w.Events, wireEvent{Topic: ev.Kind.WireTopic(ev.Symbol), Payload: string(payload)})
	}
	return json.Marshal(w)
}
