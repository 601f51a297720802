// Package metrics provides the indexer's Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const namespace = "emiswap_indexer"

// Metrics holds all collectors. Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	EventsApplied      *prometheus.CounterVec
	EventsSkipped      *prometheus.CounterVec
	FatalErrors        *prometheus.CounterVec
	LastProcessedBlock prometheus.Gauge
	ChainHead          prometheus.Gauge
	BlockDuration      prometheus.Histogram
	EntitiesWritten    prometheus.Counter
	RPCCallLatency     *prometheus.HistogramVec
	RPCCallErrors      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsApplied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_applied_total",
			Help:      "Events applied to the entity store by event name",
		}, []string{"event"}),
		EventsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_skipped_total",
			Help:      "Logs ignored by the dispatcher by reason",
		}, []string{"reason"}),
		FatalErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "fatal_errors_total",
			Help:      "Errors that stopped a block from committing by kind",
		}, []string{"kind"}),
		LastProcessedBlock: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "last_processed_block",
			Help:      "Last block committed with its checkpoint",
		}),
		ChainHead: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "chain_head_block",
			Help:      "Latest block reported by the node",
		}),
		BlockDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "block_duration_seconds",
			Help:      "Time to apply and commit one block",
			Buckets:   prometheus.DefBuckets,
		}),
		EntitiesWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "entities_written_total",
			Help:      "Entity records committed to storage",
		}),
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Failed RPC calls by method",
		}, []string{"method"}),
	}
}

// ObserveRPC records one RPC call. It matches rpc.Observer.
func (m *Metrics) ObserveRPC(method string, d time.Duration, err error) {
	m.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve runs the /metrics endpoint, plus whatever mounts register, until
// ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, port int, logger zerolog.Logger, mounts ...func(*http.ServeMux)) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	for _, mount := range mounts {
		mount(mux)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Msg("Metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}
