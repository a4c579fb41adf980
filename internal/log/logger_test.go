package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentApp, Output: &buf})

	logger.WithComponent(ComponentLedger).Info("saved", FieldCount, 3)
	out := buf.String()
	assert.Contains(t, out, "component=ledger")
	assert.Contains(t, out, "count=3")
	assert.NotContains(t, out, "component=app")
}

func TestFromContextFallsBack(t *testing.T) {
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())

	logger := Discard()
	assert.Same(t, logger, FromContext(NewContext(context.Background(), logger)))
}

func TestMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})

	r := chi.NewRouter()
	r.Use(middleware.RequestID, Middleware(logger))
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
		http.NotFound(w, r)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing?x=1", nil))

	out := buf.String()
	assert.Contains(t, out, "inside handler")
	assert.Contains(t, out, "request_id=")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status_code=404")
}
