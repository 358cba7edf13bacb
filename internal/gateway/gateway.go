// Package gateway is the subscription gateway: it upgrades incoming HTTP
// connections to websockets, hands each one a consistent snapshot of one
// symbol's book, then streams live events to it from the event bus.
package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fenrir-exchange/matchcore/internal/common"
	"github.com/fenrir-exchange/matchcore/internal/eventbus"
	"github.com/fenrir-exchange/matchcore/internal/metrics"
	"github.com/fenrir-exchange/matchcore/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway accepts websocket connections and tracks their live sessions.
type Gateway struct {
	store   store.Store
	bus     *eventbus.Bus
	metrics *metrics.Collectors

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Gateway over st and bus.
func New(st store.Store, bus *eventbus.Bus) *Gateway {
	return &Gateway{store: st, bus: bus, sessions: make(map[string]*session)}
}

// WithMetrics attaches m so every session connect/disconnect updates the
// live gateway-session gauge. Call before the gateway takes traffic.
func (g *Gateway) WithMetrics(m *metrics.Collectors) *Gateway {
	g.metrics = m
	return g
}

// ServeHTTP upgrades the request to a websocket and runs a session for
// the symbol named in the "symbol" query parameter until the connection
// closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	symbol := common.Symbol(r.URL.Query().Get("symbol"))
	if symbol == "" {
		http.Error(w, "symbol query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	sess := newSession(id, symbol, conn, g.store, g.bus)

	g.mu.Lock()
	g.sessions[id] = sess
	g.mu.Unlock()
	if g.metrics != nil {
		g.metrics.GatewaySessions.Inc()
	}
	defer func() {
		g.mu.Lock()
		delete(g.sessions, id)
		g.mu.Unlock()
		if g.metrics != nil {
			g.metrics.GatewaySessions.Dec()
		}
	}()

	if err := sess.run(r.Context()); err != nil {
		log.Warn().Err(err).Str("session", id).Str("symbol", string(symbol)).Msg("session ended")
	}
}

// SessionCount returns the number of currently connected sessions.
func (g *Gateway) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// Shutdown tells every live session to close and waits for them to
// drain.
func (g *Gateway) Shutdown(ctx context.Context) {
	g.mu.Lock()
	sessions := make([]*session, 0, len(g.sessions))
	for _, s := range g.sessions {
		sessions = append(sessions, s)
	}
	g.mu.Unlock()

	for _, s := range sessions {
		s.t.Kill(nil)
	}
	for _, s := range sessions {
		_ = s.t.Wait()
	}
}
