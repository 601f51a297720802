package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiswap/indexer/internal/processor"
)

func ok() Pinger { return PingerFunc(func(context.Context) error { return nil }) }

func down() Pinger {
	return PingerFunc(func(context.Context) error { return errors.New("connection refused") })
}

func serve(t *testing.T, h *Health, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthStates(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status processor.Status
		want   string
		code   int
	}{
		{"healthy", ok(), processor.Status{NextBlock: 101, ChainHead: 100}, "healthy", http.StatusOK},
		{"degraded", ok(), processor.Status{NextBlock: 1, ChainHead: 500}, "degraded", http.StatusOK},
		{"unhealthy", down(), processor.Status{NextBlock: 101, ChainHead: 100}, "unhealthy", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.status
			h := NewHealth(tt.db, ok(), func() processor.Status { return st }, zerolog.Nop())
			rec := serve(t, h, "/health")
			assert.Equal(t, tt.code, rec.Code)

			var body struct {
				Data HealthStatus `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Data.Status)
		})
	}
}

func TestHealthBehindBy(t *testing.T) {
	h := NewHealth(ok(), ok(), func() processor.Status {
		return processor.Status{NextBlock: 90, ChainHead: 100, Pairs: 3}
	}, zerolog.Nop())

	st := h.Check(context.Background())
	assert.Equal(t, uint64(11), st.Sync.BehindBy)
	assert.Equal(t, 3, st.Sync.Pairs)
}

func TestReadyAndLive(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(t, NewHealth(ok(), ok(), nil, zerolog.Nop()), "/ready").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, NewHealth(ok(), down(), nil, zerolog.Nop()), "/ready").Code)
	assert.Equal(t, "alive", serve(t, NewHealth(down(), down(), nil, zerolog.Nop()), "/live").Body.String())
}
