package httpserver

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/datalinc/formbridge/internal/config"
	"github.com/datalinc/formbridge/internal/version"
	"github.com/datalinc/formbridge/web"
)

// Server holds the HTTP server dependencies.
type Server struct {
	Router      *chi.Mux
	AdminRouter chi.Router // session-authenticated, admin-gated /api/v1 sub-router
	CORS        func(http.Handler) http.Handler
	Logger      *slog.Logger
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Metrics     *prometheus.Registry
	startedAt   time.Time
}

// NewServer creates an HTTP server with middleware, health/metrics endpoints,
// and the embedded browser SDK. adminGate is the middleware chain applied to
// the /api/v1 sub-router: authentication followed by the admin authorization
// check. Domain handlers should be mounted on AdminRouter (admin CRUD) or
// Router (public surfaces) after calling NewServer.
func NewServer(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, adminGate ...func(http.Handler) http.Handler) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		DB:        db,
		Redis:     rdb,
		Metrics:   metricsReg,
		startedAt: time.Now(),
	}

	// Global middleware
	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)

	// Config-driven CORS for the admin and auth API groups only. It must not
	// run on the public intake routes: those answer their own preflights from
	// the client allowlist, and this middleware would terminate the OPTIONS
	// request before the allowlist check runs.
	s.CORS = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// Health endpoints (unauthenticated)
	s.Router.Get("/healthz", s.handleHealthz)
	s.Router.Get("/readyz", s.handleReadyz)

	// Prometheus metrics (unauthenticated)
	s.Router.Handle(cfg.MetricsPath, promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	// Browser SDK for third-party sites.
	s.Router.Get("/sdk/form-sdk.js", handleFormSDK)

	// Admin API: authenticate the session, then require an admin_users row.
	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.CORS)
		r.Use(adminGate...)

		r.Get("/status", s.handleStatus)

		// Reference kept so domain handlers can be mounted externally.
		s.AdminRouter = r
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func handleFormSDK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(web.FormSDK)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("readiness check: database ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "database not ready")
		return
	}

	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Logger.Error("readiness check: redis ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "redis not ready")
		return
	}

	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusResponse is the JSON shape returned by handleStatus.
type statusResponse struct {
	Status           string  `json:"status"`
	Version          string  `json:"version"`
	CommitSHA        string  `json:"commit_sha"`
	Uptime           string  `json:"uptime"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	Database         string  `json:"database"`
	DatabaseLatency  float64 `json:"database_latency_ms"`
	Redis            string  `json:"redis"`
	RedisLatency     float64 `json:"redis_latency_ms"`
	LastSubmissionAt *string `json:"last_submission_at"`
}

// handleStatus returns system health information including DB/Redis
// connectivity, uptime, and the timestamp of the most recent submission.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uptime := time.Since(s.startedAt)

	resp := statusResponse{
		Version:       version.Version,
		CommitSHA:     version.Commit,
		Uptime:        uptime.Truncate(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
	}

	dbStart := time.Now()
	if err := s.DB.Ping(ctx); err != nil {
		s.Logger.Error("status check: database ping failed", "error", err)
		resp.Database = "error"
	} else {
		resp.Database = "ok"
	}
	resp.DatabaseLatency = math.Round(float64(time.Since(dbStart).Microseconds())/10) / 100 // ms with 2 decimal places

	redisStart := time.Now()
	if err := s.Redis.Ping(ctx).Err(); err != nil {
		s.Logger.Error("status check: redis ping failed", "error", err)
		resp.Redis = "error"
	} else {
		resp.Redis = "ok"
	}
	resp.RedisLatency = math.Round(float64(time.Since(redisStart).Microseconds())/10) / 100

	if resp.Database == "ok" && resp.Redis == "ok" {
		resp.Status = "ok"
	} else {
		resp.Status = "degraded"
	}

	var lastSubmission *time.Time
	if resp.Database == "ok" {
		if err := s.DB.QueryRow(ctx,
			`SELECT max(submitted_at) FROM form_submissions`).Scan(&lastSubmission); err != nil {
			s.Logger.Warn("status check: last submission lookup failed", "error", err)
		}
	}
	if lastSubmission != nil {
		ts := lastSubmission.UTC().Format(time.RFC3339)
		resp.LastSubmissionAt = &ts
	}

	Respond(w, http.StatusOK, resp)
}
