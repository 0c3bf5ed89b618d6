// Package metrics exposes indexing counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UnitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "symbol_indexer_unit_seconds",
		Help:    "Time spent indexing one compilation unit.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	UnitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symbol_indexer_units_total",
		Help: "Compilation units processed, by outcome.",
	}, []string{"status"})

	NodesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symbol_indexer_nodes_created_total",
		Help: "AST nodes created.",
	})

	EntitiesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symbol_indexer_entities_created_total",
		Help: "Entities created.",
	})

	ProblemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symbol_indexer_problems_total",
		Help: "Diagnostics recorded, by severity.",
	}, []string{"severity"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symbol_indexer_watcher_events_total",
		Help: "File system events received by the watcher.",
	})
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	slog.Info("metrics.listen", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
