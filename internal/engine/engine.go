// Package engine is the matching engine: one single-writer worker
// goroutine per symbol, each owning its own order book, stop table, and
// order-record history, serialized behind a command channel and
// supervised by a tomb.Tomb the way the rest of this codebase supervises
// long-running goroutines.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"

	"github.com/fenrir-exchange/matchcore/internal/book"
	"github.com/fenrir-exchange/matchcore/internal/common"
	"github.com/fenrir-exchange/matchcore/internal/eventbus"
	"github.com/fenrir-exchange/matchcore/internal/metrics"
	"github.com/fenrir-exchange/matchcore/internal/store"
)

// Engine owns one symbolWorker per configured symbol and routes commands
// to the right one. Order ids are assigned centrally so they're globally
// unique and so Cancel, which takes no symbol argument, can be routed
// without the caller knowing which symbol an order belongs to.
type Engine struct {
	st  store.Store
	bus *eventbus.Bus

	workers map[common.Symbol]*symbolWorker

	orderSeq    atomic.Uint64
	orderSymbol sync.Map // common.OrderID -> common.Symbol

	t tomb.Tomb
}

// New starts one worker per symbol and begins accepting commands.
func New(symbols []common.Symbol, st store.Store, bus *eventbus.Bus) *Engine {
	e := &Engine{
		st:      st,
		bus:     bus,
		workers: make(map[common.Symbol]*symbolWorker, len(symbols)),
	}
	for _, sym := range symbols {
		w := newSymbolWorker(sym, st, bus)
		e.workers[sym] = w
		e.t.Go(w.run)
	}
	return e
}

// WithMetrics attaches m so every command records latency, throughput,
// and rejection counters. Call before the engine takes live traffic.
func (e *Engine) WithMetrics(m *metrics.Collectors) *Engine {
	for _, w := range e.workers {
		w.metrics = m
	}
	return e
}

// Submit assigns an id to o and hands it to its symbol's worker, blocking
// until the command is fully applied (or ctx is cancelled). Validation
// failures are not rejected here: they're routed through the same worker
// as every other command so a rejected order still gets an id and a
// terminal OrderChanged event, the way spec-mandated terminal transitions
// require.
func (e *Engine) Submit(ctx context.Context, o common.Order) (common.Order, []common.Trade, error) {
	w, ok := e.workers[o.Symbol]
	if !ok {
		return common.Order{}, nil, common.ErrUnknownSymbol
	}

	o.ID = common.OrderID(e.orderSeq.Add(1))
	o.CreatedAt = time.Now()
	e.orderSymbol.Store(o.ID, o.Symbol)

	result := make(chan submitResult, 1)
	select {
	case w.cmds <- submitCommand{order: &o, result: result}:
	case <-ctx.Done():
		return common.Order{}, nil, ctx.Err()
	case <-e.t.Dying():
		return common.Order{}, nil, common.NewError(common.KindEngineUnavailable, "engine shutting down")
	}

	select {
	case res := <-result:
		return res.order, res.trades, res.err
	case <-ctx.Done():
		return common.Order{}, nil, ctx.Err()
	}
}

// Cancel routes to the order's owning symbol using the id->symbol index
// built at Submit time, since the caller identifies an order by id alone.
func (e *Engine) Cancel(ctx context.Context, userID string, orderID common.OrderID) (common.OrderStatus, error) {
	symAny, ok := e.orderSymbol.Load(orderID)
	if !ok {
		return 0, common.ErrNotFound
	}
	w := e.workers[symAny.(common.Symbol)]

	result := make(chan cancelResult, 1)
	select {
	case w.cmds <- cancelCommand{orderID: orderID, userID: userID, result: result}:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-e.t.Dying():
		return 0, common.NewError(common.KindEngineUnavailable, "engine shutting down")
	}

	select {
	case res := <-result:
		return res.status, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// OrderBookSnapshot returns the live in-memory book view for symbol,
// depth levels per side.
func (e *Engine) OrderBookSnapshot(symbol common.Symbol, depth int) (book.BookSnapshot, error) {
	w, ok := e.workers[symbol]
	if !ok {
		return book.BookSnapshot{}, common.ErrUnknownSymbol
	}
	return w.snapshot(depth), nil
}

// Order returns the full record (including terminal orders) the engine
// has seen for id.
func (e *Engine) Order(orderID common.OrderID) (common.Order, error) {
	symAny, ok := e.orderSymbol.Load(orderID)
	if !ok {
		return common.Order{}, common.ErrNotFound
	}
	w := e.workers[symAny.(common.Symbol)]
	return w.order(orderID)
}

// Shutdown stops every worker and waits for its in-flight command, if
// any, to finish applying.
func (e *Engine) Shutdown() error {
	e.t.Kill(nil)
	return e.t.Wait()
}

// symbolWorker is the single writer for one symbol's book, stop table,
// and sequence counters. All of its state is only ever touched from its
// own run goroutine.
type symbolWorker struct {
	symbol  common.Symbol
	book    *book.OrderBook
	stops   *stopTable
	store   store.Store
	bus     *eventbus.Bus
	metrics *metrics.Collectors

	records map[common.OrderID]*common.Order

	eventSeq     common.SequenceNumber
	orderRestSeq common.SequenceNumber
	tradeSeq     common.TradeID

	cmds chan any
}

func newSymbolWorker(symbol common.Symbol, st store.Store, bus *eventbus.Bus) *symbolWorker {
	return &symbolWorker{
		symbol:  symbol,
		book:    book.New(symbol),
		stops:   newStopTable(),
		store:   st,
		bus:     bus,
		records: make(map[common.OrderID]*common.Order),
		cmds:    make(chan any, 256),
	}
}

func (w *symbolWorker) run(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			w.drain()
			return nil
		case raw := <-w.cmds:
			w.handleCommand(raw)
		}
	}
}

// drain processes every command already queued at the moment the worker
// starts dying, so a caller already blocked on a buffered result channel
// (engine.go's Submit/Cancel) gets its answer instead of being stranded,
// per spec §6's "on shutdown the core drains its command queues per
// symbol."
func (w *symbolWorker) drain() {
	for {
		select {
		case raw := <-w.cmds:
			w.handleCommand(raw)
		default:
			return
		}
	}
}

func (w *symbolWorker) handleCommand(raw any) {
	if w.metrics != nil {
		w.metrics.QueueDepth.WithLabelValues(string(w.symbol)).Set(float64(len(w.cmds)))
	}
	start := time.Now()
	switch cmd := raw.(type) {
	case submitCommand:
		res := w.processSubmit(cmd.order)
		w.observeSubmit(res, start)
		cmd.result <- res
	case cancelCommand:
		res := w.processCancel(cmd.orderID, cmd.userID)
		if w.metrics != nil {
			w.metrics.ObserveCommand(string(w.symbol), "cancel", start)
		}
		cmd.result <- res
	}
}

// observeSubmit records command latency/throughput plus trade and
// rejection counters for one Submit's outcome.
func (w *symbolWorker) observeSubmit(res submitResult, start time.Time) {
	if w.metrics == nil {
		return
	}
	w.metrics.ObserveCommand(string(w.symbol), "submit", start)
	w.metrics.TradesExecuted.WithLabelValues(string(w.symbol)).Add(float64(len(res.trades)))
	if res.order.Status == common.Rejected {
		reason := "validation"
		if common.KindOf(res.err) == common.KindNoLiquidity {
			reason = "no_liquidity"
		}
		w.metrics.RejectedOrders.WithLabelValues(string(w.symbol), reason).Inc()
	}
}

func (w *symbolWorker) nextEventSeq() common.SequenceNumber {
	w.eventSeq++
	return w.eventSeq
}

func (w *symbolWorker) nextOrderSeq() common.SequenceNumber {
	w.orderRestSeq++
	return w.orderRestSeq
}

func (w *symbolWorker) nextTradeID() common.TradeID {
	w.tradeSeq++
	return w.tradeSeq
}

// sequenceMark captures the worker's sequence counters at the start of a
// command so they can be restored if the command's apply ultimately
// fails, keeping the next successful command's sequence stream
// contiguous instead of leaving a permanent gap at the numbers the
// failed command consumed.
type sequenceMark struct {
	eventSeq     common.SequenceNumber
	orderRestSeq common.SequenceNumber
	tradeSeq     common.TradeID
}

func (w *symbolWorker) markSequences() sequenceMark {
	return sequenceMark{eventSeq: w.eventSeq, orderRestSeq: w.orderRestSeq, tradeSeq: w.tradeSeq}
}

func (w *symbolWorker) restoreSequences(m sequenceMark) {
	w.eventSeq, w.orderRestSeq, w.tradeSeq = m.eventSeq, m.orderRestSeq, m.tradeSeq
}

func (w *symbolWorker) snapshot(depth int) book.BookSnapshot {
	return w.book.Snapshot(depth)
}

func (w *symbolWorker) order(id common.OrderID) (common.Order, error) {
	o, ok := w.records[id]
	if !ok {
		return common.Order{}, common.ErrNotFound
	}
	return *o, nil
}

func (w *symbolWorker) processSubmit(order *common.Order) submitResult {
	now := time.Now()
	order.UpdatedAt = now
	order.Status = common.Pending
	w.records[order.ID] = order

	mark := w.markSequences()

	if err := validateSubmit(order); err != nil {
		order.Terminalize(common.Rejected, now)
		cs := &store.ChangeSet{Symbol: w.symbol}
		cs.Orders = append(cs.Orders, *order)
		cs.Events = append(cs.Events, eventbus.OrderChangedEvent(w.nextEventSeq(), now, *order))
		cs.NextSequence = w.eventSeq
		if applyErr := w.applyAndPublish(context.Background(), *cs); applyErr != nil {
			w.restoreSequences(mark)
			return submitResult{err: applyErr}
		}
		return submitResult{order: *order, err: err}
	}

	cs := &store.ChangeSet{Symbol: w.symbol}

	if order.Type == common.Stop {
		w.stops.add(order)
		cs.Orders = append(cs.Orders, *order)
		cs.Events = append(cs.Events, eventbus.OrderChangedEvent(w.nextEventSeq(), now, *order))
		cs.NextSequence = w.eventSeq
		if err := w.applyAndPublish(context.Background(), *cs); err != nil {
			w.restoreSequences(mark)
			return submitResult{err: err}
		}
		return submitResult{order: *order}
	}

	eligibleStops := w.stops.snapshotIDs()
	var allTrades []common.Trade
	resultOrder := *order

	queue := []*common.Order{order}
	first := true
	for len(queue) > 0 {
		taker := queue[0]
		queue = queue[1:]
		triggered := w.matchOne(taker, eligibleStops, cs, &allTrades, now)
		queue = append(queue, triggered...)
		if first {
			resultOrder = *taker
			first = false
		}
	}

	cs.Events = append(cs.Events, eventbus.BookChangedEvent(w.nextEventSeq(), now, w.symbol, w.book.Snapshot(10)))
	cs.NextSequence = w.eventSeq

	if err := w.applyAndPublish(context.Background(), *cs); err != nil {
		w.restoreSequences(mark)
		return submitResult{err: err}
	}
	if resultOrder.Status == common.Rejected {
		return submitResult{order: resultOrder, trades: allTrades, err: common.ErrNoLiquidity}
	}
	return submitResult{order: resultOrder, trades: allTrades}
}

func (w *symbolWorker) processCancel(orderID common.OrderID, userID string) cancelResult {
	rec, ok := w.records[orderID]
	if !ok {
		return cancelResult{err: common.ErrNotFound}
	}
	if rec.UserID != userID {
		return cancelResult{err: common.ErrNotOwned}
	}
	if rec.Status.Terminal() {
		return cancelResult{err: common.ErrAlreadyTerminal}
	}

	now := time.Now()
	mark := w.markSequences()
	cs := store.ChangeSet{Symbol: w.symbol}

	if rec.Type == common.Stop {
		w.stops.remove(orderID)
	} else if !w.book.RemoveResting(rec) {
		return cancelResult{err: common.ErrNotFound}
	} else if lvl, found := w.book.Side(rec.Side).Get(rec.Price); found {
		cs.LevelWrites = append(cs.LevelWrites, levelWriteFrom(lvl))
	} else {
		cs.LevelDeletes = append(cs.LevelDeletes, store.LevelDelete{Side: rec.Side, Price: rec.Price})
	}

	rec.Terminalize(common.Cancelled, now)
	cs.Orders = append(cs.Orders, *rec)
	cs.Events = append(cs.Events, eventbus.OrderChangedEvent(w.nextEventSeq(), now, *rec))
	cs.Events = append(cs.Events, eventbus.BookChangedEvent(w.nextEventSeq(), now, w.symbol, w.book.Snapshot(10)))
	cs.NextSequence = w.eventSeq

	if err := w.applyAndPublish(context.Background(), cs); err != nil {
		w.restoreSequences(mark)
		return cancelResult{err: err}
	}
	return cancelResult{status: common.Cancelled}
}

// snapshotMirrorDepth bounds the book view mirrored into stores that
// can't reconstruct Snapshot from their own level writes (see
// bookSnapshotMirror below).
const snapshotMirrorDepth = 50

// bookSnapshotMirror is satisfied by stores (store.MemoryStore) whose
// Snapshot can't be derived from ChangeSet.LevelWrites/LevelDeletes alone
// and so need the engine to hand them its in-memory book view directly.
// RedisStore doesn't implement this: its Snapshot reads the level writes
// AtomicApply already persisted.
type bookSnapshotMirror interface {
	SetBookSnapshot(symbol common.Symbol, snap book.BookSnapshot)
}

// applyAndPublish commits cs to the durable store and, only once that
// succeeds, republishes its events on the in-process bus. A failed apply
// means the command fails with EngineUnavailable; the in-memory book has
// already incorporated the mutation by this point since this worker is
// the sole writer for the symbol, so the durable store is the side that
// lags, not the book.
func (w *symbolWorker) applyAndPublish(ctx context.Context, cs store.ChangeSet) error {
	if err := w.store.AtomicApply(ctx, cs); err != nil {
		log.Error().Err(err).Str("symbol", string(w.symbol)).Msg("atomic apply failed")
		return err
	}
	if mirror, ok := w.store.(bookSnapshotMirror); ok {
		mirror.SetBookSnapshot(w.symbol, w.book.Snapshot(snapshotMirrorDepth))
	}
	for _, ev := range cs.Events {
		if err := w.bus.Publish(ev); err != nil {
			log.Error().Err(err).Str("symbol", string(w.symbol)).Msg("local event publish failed")
		}
	}
	return nil
}
