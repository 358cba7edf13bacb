// Command server runs the matching engine and its two client-facing
// surfaces: the binary TCP order-entry adapter (internal/adapter) and the
// websocket subscription gateway (internal/gateway), plus a Prometheus
// scrape endpoint (internal/metrics).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"

	"github.com/fenrir-exchange/matchcore/internal/adapter"
	"github.com/fenrir-exchange/matchcore/internal/common"
	"github.com/fenrir-exchange/matchcore/internal/config"
	"github.com/fenrir-exchange/matchcore/internal/engine"
	"github.com/fenrir-exchange/matchcore/internal/eventbus"
	"github.com/fenrir-exchange/matchcore/internal/gateway"
	"github.com/fenrir-exchange/matchcore/internal/metrics"
	"github.com/fenrir-exchange/matchcore/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults: ./config.yaml, ./config/config.yaml, /etc/matchcore/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	initLogging(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	symbols := make([]common.Symbol, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		symbols[i] = common.Symbol(s)
	}

	collectors := metrics.NewCollectors()

	st := newStore(cfg, collectors)
	if closer, ok := st.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	bus := eventbus.New()
	defer bus.Close()

	eng := engine.New(symbols, st, bus).WithMetrics(collectors)
	defer eng.Shutdown()

	var t tomb.Tomb

	entrySrv := adapter.New(cfg.AdapterAddress, cfg.AdapterPort, eng)
	t.Go(func() error { return entrySrv.Run(&t) })

	gw := gateway.New(st, bus).WithMetrics(collectors)
	gwMux := http.NewServeMux()
	gwMux.Handle("/ws", gw)
	httpSrv := &http.Server{Addr: cfg.GatewayAddress, Handler: gwMux}
	t.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: metricsMux}
	t.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	t.Go(func() error {
		<-t.Dying()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		gw.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
		return httpSrv.Shutdown(shutdownCtx)
	})

	log.Info().
		Strs("symbols", cfg.Symbols).
		Str("adapter", cfg.AdapterAddress).
		Str("gateway", cfg.GatewayAddress).
		Str("metrics", cfg.MetricsAddress).
		Str("store", cfg.Store).
		Msg("matchcore server starting")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, draining")
	case <-t.Dying():
		log.Error().Err(t.Err()).Msg("a supervised component died")
	}

	t.Kill(nil)
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("server shutdown did not complete cleanly")
	}
}

func newStore(cfg *config.Config, collectors *metrics.Collectors) store.Store {
	if cfg.Store == "redis" {
		return store.NewRedisStore(cfg.RedisConfig()).WithMetrics(collectors)
	}
	return store.NewMemoryStore()
}

func initLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
