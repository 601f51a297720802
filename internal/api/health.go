// Package api serves the indexer's operational endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/emiswap/indexer/internal/processor"
)

// DegradedLag is how many blocks behind the head the indexer may fall
// before it reports itself degraded.
const DegradedLag = 100

// Pinger checks a dependency's connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// StatusFunc returns the sync progress.
type StatusFunc func() processor.Status

type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Database  DependencyStatus `json:"database"`
	RPC       DependencyStatus `json:"rpc"`
	Sync      SyncStatus       `json:"sync"`
}

type DependencyStatus struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

type SyncStatus struct {
	NextBlock uint64 `json:"next_block"`
	ChainHead uint64 `json:"chain_head"`
	BehindBy  uint64 `json:"behind_by"`
	Pairs     int    `json:"pairs"`
}

// Health serves /health, /ready and /live.
type Health struct {
	db     Pinger
	rpc    Pinger
	status StatusFunc
	logger zerolog.Logger
}

func NewHealth(db, rpc Pinger, status StatusFunc, logger zerolog.Logger) *Health {
	return &Health{
		db:     db,
		rpc:    rpc,
		status: status,
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// Register mounts the endpoints on mux.
func (h *Health) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/ready", h.handleReady)
	mux.HandleFunc("/live", h.handleLive)
}

func (h *Health) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	JSON(w, code, status)
}

// Check pings the dependencies and summarizes sync progress.
func (h *Health) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Database:  check(ctx, h.db),
		RPC:       check(ctx, h.rpc),
	}
	if !status.Database.Connected || !status.RPC.Connected {
		status.Status = "unhealthy"
	}

	if h.status != nil {
		st := h.status()
		status.Sync = SyncStatus{NextBlock: st.NextBlock, ChainHead: st.ChainHead, Pairs: st.Pairs}
		if st.ChainHead >= st.NextBlock {
			status.Sync.BehindBy = st.ChainHead - st.NextBlock + 1
		}
		if status.Status == "healthy" && status.Sync.BehindBy > DegradedLag {
			status.Status = "degraded"
		}
	}
	return status
}

func check(ctx context.Context, p Pinger) DependencyStatus {
	if p == nil {
		return DependencyStatus{Connected: true}
	}
	if err := p.Ping(ctx); err != nil {
		return DependencyStatus{Connected: false, Error: err.Error()}
	}
	return DependencyStatus{Connected: true}
}

func (h *Health) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if check(ctx, h.db).Connected && check(ctx, h.rpc).Connected {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	h.logger.Warn().Msg("Readiness check failed")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (h *Health) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
