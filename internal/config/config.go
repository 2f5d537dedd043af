package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all formbridge configuration, read from environment variables.
type Config struct {
	Mode string `env:"APP_MODE" envDefault:"api"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	// Server
	Host string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"APP_PORT" envDefault:"8080"`

	// PublicBaseURL is used to build absolute links in outbound mail
	// (password reset) and as the default SDK endpoint.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// OperatorDomain is the apex domain of the operator itself. The public
	// submission API always accepts this origin and its subdomains.
	OperatorDomain string `env:"OPERATOR_DOMAIN" envDefault:"datalinc.io"`

	// Database. DatabaseURL is the restricted role used by the admin API.
	// ServiceDatabaseURL is the full-privilege role used by the public intake
	// pipeline and the admin-gate lookup; it falls back to DatabaseURL.
	DatabaseURL        string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/formbridge?sslmode=disable"`
	ServiceDatabaseURL string `env:"SERVICE_DATABASE_URL"`

	// Redis
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Migrations
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	// Sessions
	SessionSecret string `env:"SESSION_SECRET"`
	SessionMaxAge string `env:"SESSION_MAX_AGE" envDefault:"24h"`

	// CORS for the admin dashboard frontend. The public submission endpoint
	// has its own database-backed origin allowlist and ignores this.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Metrics
	MetricsPath string `env:"METRICS_PATH" envDefault:"/metrics"`

	// Email
	SendgridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFrom       string `env:"MAIL_FROM" envDefault:"forms@datalinc.io"`
	MailFromName   string `env:"MAIL_FROM_NAME" envDefault:"Form Submission"`

	// Slack (internal ops channel, optional)
	SlackBotToken   string `env:"SLACK_BOT_TOKEN"`
	SlackOpsChannel string `env:"SLACK_OPS_CHANNEL"`

	// OIDC (optional hosted-identity bearer tokens for the admin API)
	OIDCIssuerURL string `env:"OIDC_ISSUER"`
	OIDCClientID  string `env:"OIDC_CLIENT_ID"`

	// Seed
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@datalinc.io"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Intake rate limiting (per origin+IP, public submission endpoint)
	IntakeRateLimit  int    `env:"INTAKE_RATE_LIMIT" envDefault:"30"`
	IntakeRateWindow string `env:"INTAKE_RATE_WINDOW" envDefault:"1m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServiceURL returns the full-privilege database URL, falling back to the
// restricted URL when no separate service role is configured.
func (c *Config) ServiceURL() string {
	if c.ServiceDatabaseURL != "" {
		return c.ServiceDatabaseURL
	}
	return c.DatabaseURL
}

// IsProduction reports whether the app runs in production deployment mode.
// Outside production the public submission API accepts localhost origins.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
