package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"

	"github.com/fenrir-exchange/matchcore/internal/common"
	"github.com/fenrir-exchange/matchcore/internal/eventbus"
	"github.com/fenrir-exchange/matchcore/internal/store"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 256
)

// session is one client's websocket connection, subscribed to exactly
// one symbol's event stream. It hands off from a consistent snapshot
// read into the live stream without a gap: the subscription is opened
// before the snapshot is read, so any event the snapshot already
// reflects is simply skipped by sequence number, and nothing in between
// is lost.
type session struct {
	id     string
	symbol common.Symbol
	conn   *websocket.Conn
	store  store.Store
	bus    *eventbus.Bus

	send chan OutboundMessage
	t    tomb.Tomb
}

func newSession(id string, symbol common.Symbol, conn *websocket.Conn, st store.Store, bus *eventbus.Bus) *session {
	return &session{
		id:     id,
		symbol: symbol,
		conn:   conn,
		store:  st,
		bus:    bus,
		send:   make(chan OutboundMessage, sendBuffer),
	}
}

// run drives the session until the connection closes or ctx is
// cancelled. It blocks until every session goroutine has exited.
func (s *session) run(ctx context.Context) error {
	stream, err := s.bus.Subscribe(ctx, s.symbol)
	if err != nil {
		return err
	}

	snap, seq, err := s.store.Snapshot(ctx, s.symbol)
	if err != nil {
		return err
	}
	s.send <- OutboundMessage{Type: OutboundOrderBookSnap, Symbol: s.symbol, Sequence: seq, Book: &snap}

	s.t.Go(func() error { return s.readPump() })
	s.t.Go(func() error { return s.writePump() })
	s.t.Go(func() error { return s.streamPump(stream, seq) })

	<-s.t.Dying()
	s.conn.Close()
	return s.t.Wait()
}

// streamPump forwards bus events with a sequence strictly after the
// snapshot's to the client, preserving per-symbol ordering.
func (s *session) streamPump(stream <-chan eventbus.Event, afterSeq common.SequenceNumber) error {
	for {
		select {
		case <-s.t.Dying():
			return nil
		case ev, ok := <-stream:
			if !ok {
				s.t.Kill(nil)
				return nil
			}
			if ev.Sequence <= afterSeq {
				continue
			}
			s.forward(ev)
		}
	}
}

func (s *session) forward(ev eventbus.Event) {
	msg := OutboundMessage{Sequence: ev.Sequence, Symbol: ev.Symbol}
	switch ev.Kind {
	case eventbus.OrderChanged:
		msg.Type = OutboundOrderUpdate
		msg.Order = ev.Order
	case eventbus.TradeExecuted:
		msg.Type = OutboundTradeExecution
		msg.Trade = ev.Trade
	case eventbus.BookChanged:
		msg.Type = OutboundBookChange
		msg.Book = ev.Book
	default:
		return
	}
	select {
	case s.send <- msg:
	case <-s.t.Dying():
	}
}

func (s *session) readPump() error {
	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.t.Kill(nil)
			return nil
		}
		var in InboundMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			s.reply(errorMessage(common.ErrUnknownMessage))
			continue
		}
		s.handle(in)
	}
}

func (s *session) handle(in InboundMessage) {
	switch in.Type {
	case InboundPing:
		s.reply(OutboundMessage{Type: OutboundPong})
	case InboundGetOrderBook:
		depth := in.Depth
		if depth <= 0 {
			depth = 10
		}
		snap, seq, err := s.store.Snapshot(context.Background(), s.symbol)
		if err != nil {
			s.reply(errorMessage(err))
			return
		}
		if len(snap.Bids) > depth {
			snap.Bids = snap.Bids[:depth]
		}
		if len(snap.Asks) > depth {
			snap.Asks = snap.Asks[:depth]
		}
		s.reply(OutboundMessage{Type: OutboundOrderBookSnap, Symbol: s.symbol, Sequence: seq, Book: &snap})
	case InboundGetRecentTrades:
		trades, err := s.store.RecentTrades(context.Background(), s.symbol, in.Limit)
		if err != nil {
			s.reply(errorMessage(err))
			return
		}
		s.reply(OutboundMessage{Type: OutboundRecentTrades, Symbol: s.symbol, Trades: trades})
	default:
		s.reply(errorMessage(common.ErrUnknownMessage))
	}
}

func (s *session) reply(msg OutboundMessage) {
	select {
	case s.send <- msg:
	case <-s.t.Dying():
	}
}

func (s *session) writePump() error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.t.Dying():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeTimeout))
			return nil
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Str("session", s.id).Msg("write failed, closing session")
				s.t.Kill(nil)
				return nil
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.t.Kill(nil)
				return nil
			}
		}
	}
}
