// Package app wires configuration, storage, and HTTP handlers into a
// runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/datalinc/formbridge/internal/audit"
	"github.com/datalinc/formbridge/internal/auth"
	"github.com/datalinc/formbridge/internal/cache"
	"github.com/datalinc/formbridge/internal/config"
	"github.com/datalinc/formbridge/internal/httpserver"
	"github.com/datalinc/formbridge/internal/platform"
	"github.com/datalinc/formbridge/internal/seed"
	"github.com/datalinc/formbridge/internal/telemetry"
	"github.com/datalinc/formbridge/pkg/client"
	"github.com/datalinc/formbridge/pkg/dashboard"
	"github.com/datalinc/formbridge/pkg/formconfig"
	"github.com/datalinc/formbridge/pkg/intake"
	"github.com/datalinc/formbridge/pkg/mailer"
	"github.com/datalinc/formbridge/pkg/opsnotify"
	"github.com/datalinc/formbridge/pkg/submission"
)

const cacheTTL = 5 * time.Minute

// Run starts the service in the configured mode and blocks until the context
// is cancelled or a fatal error occurs.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting formbridge",
		"mode", cfg.Mode,
		"env", cfg.Env,
		"listen", cfg.ListenAddr(),
	)

	// Two database capabilities: the restricted role serves the admin CRUD
	// API; the service role serves the public intake pipeline and the
	// admin-gate lookup. Both are explicit handles, threaded by hand.
	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	serviceDB := db
	if cfg.ServiceURL() != cfg.DatabaseURL {
		serviceDB, err = platform.NewPostgresPool(ctx, cfg.ServiceURL())
		if err != nil {
			return fmt.Errorf("connecting to service database: %w", err)
		}
		defer serviceDB.Close()
	}

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.ServiceURL(), cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry()

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, serviceDB, rdb, metricsReg)
	case "seed":
		return seed.Run(ctx, serviceDB, cfg, logger)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db, serviceDB *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	sessionMaxAge, err := time.ParseDuration(cfg.SessionMaxAge)
	if err != nil {
		return fmt.Errorf("parsing SESSION_MAX_AGE: %w", err)
	}

	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
		sessionSecret = auth.GenerateDevSecret()
		logger.Warn("SESSION_SECRET not set, generated ephemeral dev secret; sessions reset on restart")
	}

	sessions, err := auth.NewSessionManager(sessionSecret, sessionMaxAge)
	if err != nil {
		return fmt.Errorf("initializing session manager: %w", err)
	}

	// OIDC authenticator (optional, nil when not configured).
	var oidcAuth *auth.OIDCAuthenticator
	if cfg.OIDCIssuerURL != "" && cfg.OIDCClientID != "" {
		oidcAuth, err = auth.NewOIDCAuthenticator(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return fmt.Errorf("initializing OIDC authenticator: %w", err)
		}
		logger.Info("OIDC authentication enabled", "issuer", cfg.OIDCIssuerURL)
	} else {
		logger.Info("OIDC authentication disabled (OIDC_ISSUER not set)")
	}

	// The admin gate and auth flows run on the service capability: a
	// restricted role cannot read admin_users.
	users := auth.NewUserStore(serviceDB)
	admins := auth.NewAdminStore(serviceDB)

	// Audit log writer (async, buffered).
	auditWriter := audit.NewWriter(serviceDB, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	apiCache := cache.New(rdb, logger, cacheTTL)

	mail := mailer.New(cfg.SendgridAPIKey, cfg.MailFrom, cfg.MailFromName, logger)
	if !mail.IsEnabled() {
		logger.Warn("SENDGRID_API_KEY not set, outbound email disabled")
	}
	ops := opsnotify.NewNotifier(cfg.SlackBotToken, cfg.SlackOpsChannel, logger)

	intakeWindow, err := time.ParseDuration(cfg.IntakeRateWindow)
	if err != nil {
		return fmt.Errorf("parsing INTAKE_RATE_WINDOW: %w", err)
	}

	srv := httpserver.NewServer(cfg, logger, serviceDB, rdb, metricsReg,
		auth.Middleware(sessions, oidcAuth, logger),
		auth.RequireAuth,
		auth.RequireAdmin(admins),
	)

	// Auth flows (login, signup, password reset) are public.
	loginLimiter := auth.NewRateLimiter(rdb, 10, 15*time.Minute)
	loginHandler := auth.NewLoginHandler(sessions, users, admins, loginLimiter, mail,
		cfg.PublicBaseURL, cfg.IsProduction(), logger)
	srv.Router.Route("/api/auth", func(r chi.Router) {
		r.Use(srv.CORS)
		r.Use(auth.Middleware(sessions, oidcAuth, logger))
		r.Mount("/", loginHandler.Routes())
	})

	// Public intake pipeline, on the service capability.
	svcClients := client.NewStore(serviceDB)
	svcConfigs := formconfig.NewStore(serviceDB)
	svcSubmissions := submission.NewStore(serviceDB)

	checker := intake.NewChecker(svcClients, cfg.OperatorDomain, cfg.IsProduction(), logger)
	intakeSvc := intake.NewService(svcClients, svcConfigs, svcSubmissions, mail, ops, logger)
	intakeLimiter := intake.NewLimiter(rdb, cfg.IntakeRateLimit, intakeWindow, logger)
	intakeHandler := intake.NewHandler(checker, intakeSvc, intakeLimiter, logger)
	srv.Router.Mount("/api/forms", intakeHandler.Routes())

	// Admin CRUD, on the restricted capability behind the admin gate.
	clients := client.NewStore(db)
	configs := formconfig.NewStore(db)
	submissions := submission.NewStore(db)

	srv.AdminRouter.Mount("/clients", client.NewHandler(clients, apiCache, auditWriter, logger).Routes())
	srv.AdminRouter.Mount("/form-configs", formconfig.NewHandler(configs, clients, apiCache, auditWriter, logger).Routes())
	srv.AdminRouter.Mount("/submissions", submission.NewHandler(submissions, apiCache, auditWriter, logger).Routes())
	srv.AdminRouter.Mount("/dashboard", dashboard.NewHandler(dashboard.NewStore(db, submissions), apiCache, logger).Routes())
	srv.AdminRouter.Mount("/audit-log", audit.NewHandler(serviceDB, logger).Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
