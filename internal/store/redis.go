package store

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/fenrir-exchange/matchcore/internal/book"
	"github.com/fenrir-exchange/matchcore/internal/common"
	"github.com/fenrir-exchange/matchcore/internal/metrics"
)

// applyScript is the Lua script every AtomicApply call runs with
// EVALSHA: a key-value backend with server-side scripting gives the
// matching engine one logical transaction per command without needing a
// distributed transaction manager.
//
// ARGV[1] is the JSON-encoded ChangeSet (see marshalChangeSet). The
// script applies hash writes for order records, list rebuilds for price
// levels, sorted-set membership for the price index, an RPUSH onto the
// append-only trade log, advances the per-symbol sequence counter, and
// PUBLISHes each event — all inside one Redis transaction so a crash
// mid-script leaves no partial state observable.
const applyScript = `
local cs = cjson.decode(ARGV[1])

for _, o in ipairs(cs.orders or {}) do
  redis.call('HSET', 'order:' .. o.id, 'data', o.data)
  redis.call('SADD', 'user:' .. o.user_id .. ':orders', o.id)
  redis.call('SADD', 'symbol:' .. cs.symbol .. ':orders', o.id)
end

for _, t in ipairs(cs.trades or {}) do
  redis.call('RPUSH', 'trades:' .. cs.symbol, t.data)
end

for _, lvl in ipairs(cs.level_writes or {}) do
  local sideKey = 'book:' .. cs.symbol .. ':' .. lvl.side
  redis.call('ZADD', sideKey .. ':levels', lvl.price, lvl.price)
  redis.call('HSET', sideKey .. ':' .. lvl.price .. ':agg',
    'total_quantity', lvl.total_quantity, 'order_count', lvl.order_count)
  redis.call('DEL', sideKey .. ':' .. lvl.price .. ':orders')
  for _, id in ipairs(lvl.order_ids or {}) do
    redis.call('RPUSH', sideKey .. ':' .. lvl.price .. ':orders', id)
  end
end

for _, d in ipairs(cs.level_deletes or {}) do
  local sideKey = 'book:' .. cs.symbol .. ':' .. d.side
  redis.call('ZREM', sideKey .. ':levels', d.price)
  redis.call('DEL', sideKey .. ':' .. d.price .. ':agg')
  redis.call('DEL', sideKey .. ':' .. d.price .. ':orders')
end

redis.call('SET', 'symbol:' .. cs.symbol .. ':sequence', cs.next_sequence)

for _, ev in ipairs(cs.events or {}) do
  redis.call('PUBLISH', ev.topic, ev.payload)
end

return 'OK'
`

// RedisConfig holds the recognized redis_* connection options.
type RedisConfig struct {
	Host                 string
	Port                 int
	DB                   int
	Password             string
	SSL                  bool
	MaxConnections       int
	SocketTimeout        time.Duration
	SocketConnectTimeout time.Duration
}

// RedisStore is the production Store: go-redis for transport, a compiled
// Lua script for atomic multi-key apply, and a gobreaker circuit
// breaker so a flaky backend surfaces as EngineUnavailable instead of
// hanging the symbol's matching worker.
type RedisStore struct {
	client  *redis.Client
	script  *redis.Script
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Collectors
}

// WithMetrics attaches m so exhausted apply retries bump the
// store-apply-errors counter. Call before the store takes live traffic.
func (s *RedisStore) WithMetrics(m *metrics.Collectors) *RedisStore {
	s.metrics = m
	return s
}

// NewRedisStore dials Redis per cfg and prepares the apply script and
// circuit breaker. It does not eagerly EVALSHA-load the script; go-redis
// transparently falls back to EVAL on NOSCRIPT.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		DialTimeout:  cfg.SocketConnectTimeout,
		ReadTimeout:  cfg.SocketTimeout,
		WriteTimeout: cfg.SocketTimeout,
	}
	if cfg.SSL {
		opts.TLSConfig = &tls.Config{ServerName: cfg.Host}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "matchcore.store.apply",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &RedisStore{
		client:  redis.NewClient(opts),
		script:  redis.NewScript(applyScript),
		breaker: breaker,
	}
}

const (
	maxApplyAttempts  = 3
	baseApplyBackoff  = 20 * time.Millisecond
)

// AtomicApply runs the Lua script through the circuit breaker with a
// capped exponential backoff retry budget. Exhausting the budget, or a
// tripped breaker, surfaces common.KindEngineUnavailable.
func (s *RedisStore) AtomicApply(ctx context.Context, cs ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	payload, err := marshalChangeSet(cs)
	if err != nil {
		return common.WrapError(common.KindInternalInvariantViolation, "encode change-set", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return s.script.Run(ctx, s.client, nil, payload).Result()
		})
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn().Err(err).Str("symbol", string(cs.Symbol)).Int("attempt", attempt+1).
			Msg("atomic apply failed, retrying")

		select {
		case <-time.After(baseApplyBackoff << attempt):
		case <-ctx.Done():
			return common.WrapError(common.KindEngineUnavailable, "apply cancelled", ctx.Err())
		}
	}
	if s.metrics != nil {
		s.metrics.StoreApplyErrors.Inc()
	}
	return common.WrapError(common.KindEngineUnavailable, "atomic apply exhausted retry budget", lastErr)
}

func (s *RedisStore) Snapshot(ctx context.Context, symbol common.Symbol) (book.BookSnapshot, common.SequenceNumber, error) {
	seqStr, err := s.client.Get(ctx, fmt.Sprintf("symbol:%s:sequence", symbol)).Result()
	if err != nil && err != redis.Nil {
		return book.BookSnapshot{}, 0, common.WrapError(common.KindEngineUnavailable, "read sequence", err)
	}
	var seq common.SequenceNumber
	if seqStr != "" {
		fmt.Sscanf(seqStr, "%d", &seq)
	}

	snap := book.BookSnapshot{Symbol: symbol}
	for _, side := range []common.Side{common.Buy, common.Sell} {
		levels, err := s.readSideLevels(ctx, symbol, side)
		if err != nil {
			return book.BookSnapshot{}, 0, err
		}
		if side == common.Buy {
			snap.Bids = levels
		} else {
			snap.Asks = levels
		}
	}
	return snap, seq, nil
}

func (s *RedisStore) readSideLevels(ctx context.Context, symbol common.Symbol, side common.Side) ([]book.LevelAggregate, error) {
	key := fmt.Sprintf("book:%s:%s:levels", symbol, side)
	// Bids are listed best (highest) first, asks best (lowest) first.
	rng := s.client.ZRange
	if side == common.Buy {
		rng = s.client.ZRevRange
	}
	prices, err := rng(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, common.WrapError(common.KindEngineUnavailable, "read levels", err)
	}
	out := make([]book.LevelAggregate, 0, len(prices))
	for _, p := range prices {
		agg, err := s.client.HGetAll(ctx, fmt.Sprintf("book:%s:%s:%s:agg", symbol, side, p)).Result()
		if err != nil {
			return nil, common.WrapError(common.KindEngineUnavailable, "read level aggregate", err)
		}
		var price int64
		fmt.Sscanf(p, "%d", &price)
		var qty common.Quantity
		var count int
		fmt.Sscanf(agg["total_quantity"], "%d", &qty)
		fmt.Sscanf(agg["order_count"], "%d", &count)
		out = append(out, book.LevelAggregate{Price: common.Price(price), TotalQuantity: qty, OrderCount: count})
	}
	return out, nil
}

func (s *RedisStore) RecentTrades(ctx context.Context, symbol common.Symbol, limit int) ([]common.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := s.client.LRange(ctx, fmt.Sprintf("trades:%s", symbol), int64(-limit), -1).Result()
	if err != nil {
		return nil, common.WrapError(common.KindEngineUnavailable, "read trade log", err)
	}
	out := make([]common.Trade, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- { // newest first
		var t common.Trade
		if err := json.Unmarshal([]byte(raw[i]), &t); err != nil {
			log.Error().Err(err).Msg("skipping undecodable trade log entry")
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *RedisStore) Order(ctx context.Context, id common.OrderID) (common.Order, error) {
	data, err := s.client.HGet(ctx, fmt.Sprintf("order:%d", id), "data").Result()
	if err == redis.Nil {
		return common.Order{}, common.ErrNotFound
	}
	if err != nil {
		return common.Order{}, common.WrapError(common.KindEngineUnavailable, "read order", err)
	}
	var o common.Order
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return common.Order{}, common.WrapError(common.KindInternalInvariantViolation, "decode order", err)
	}
	return o, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
