package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datalinc/formbridge/internal/config"
	"github.com/datalinc/formbridge/internal/telemetry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{MetricsPath: "/metrics"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, logger, nil, nil, telemetry.NewMetricsRegistry())
}

// A browser preflight to the public submission endpoint must reach the
// handler mounted there, which decides from the client allowlist. The
// config-driven CORS middleware is scoped to /api/v1 and must not answer
// for it.
func TestPreflightReachesPublicFormRoutes(t *testing.T) {
	srv := newTestServer(t)
	srv.Router.Options("/api/forms/submit", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/forms/submit", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want unset", got)
	}
}

func TestPreflightOnAdminAPIAnswered(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://admin.datalinc.io")
	req.Header.Set("Access-Control-Request-Method", "GET")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin on admin preflight")
	}
}
