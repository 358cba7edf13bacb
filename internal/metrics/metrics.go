// Package metrics exposes Prometheus collectors for the matching engine
// and its surrounding transports: commands processed, trades executed,
// per-symbol queue depth, matcher latency, and live gateway sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors holds every metric this process exports. Construct once
// with NewCollectors and share the pointer across packages.
type Collectors struct {
	CommandsProcessed *prometheus.CounterVec
	TradesExecuted    *prometheus.CounterVec
	CommandLatency    *prometheus.HistogramVec
	QueueDepth        *prometheus.GaugeVec
	RejectedOrders    *prometheus.CounterVec
	GatewaySessions   prometheus.Gauge
	StoreApplyErrors  prometheus.Counter
}

// NewCollectors registers every metric against the default registry.
func NewCollectors() *Collectors {
	return &Collectors{
		CommandsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchcore_commands_processed_total",
				Help: "Submit and cancel commands processed per symbol.",
			},
			[]string{"symbol", "command"},
		),
		TradesExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchcore_trades_executed_total",
				Help: "Trades produced by the matcher per symbol.",
			},
			[]string{"symbol"},
		),
		CommandLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchcore_command_latency_seconds",
				Help:    "Time from command dequeue to result, per symbol worker.",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50µs to ~400ms
			},
			[]string{"symbol", "command"},
		),
		QueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchcore_symbol_queue_depth",
				Help: "Commands currently queued for a symbol's worker.",
			},
			[]string{"symbol"},
		),
		RejectedOrders: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchcore_orders_rejected_total",
				Help: "Orders rejected by validation or no-liquidity, per symbol.",
			},
			[]string{"symbol", "reason"},
		),
		GatewaySessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "matchcore_gateway_sessions",
				Help: "Currently connected subscription gateway sessions.",
			},
		),
		StoreApplyErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "matchcore_store_apply_errors_total",
				Help: "Failed durable-store apply attempts across all symbols.",
			},
		),
	}
}

// ObserveCommand records a completed command's latency and bumps the
// per-symbol counter in one call.
func (c *Collectors) ObserveCommand(symbol, command string, start time.Time) {
	c.CommandsProcessed.WithLabelValues(symbol, command).Inc()
	c.CommandLatency.WithLabelValues(symbol, command).Observe(time.Since(start).Seconds())
}
