package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{
			name:   "default mode is api",
			check:  func(c *Config) bool { return c.Mode == "api" },
			expect: "api",
		},
		{
			name:   "default env is development",
			check:  func(c *Config) bool { return c.Env == "development" && !c.IsProduction() },
			expect: "development",
		},
		{
			name:   "default port is 8080",
			check:  func(c *Config) bool { return c.Port == 8080 },
			expect: "8080",
		},
		{
			name:   "default operator domain",
			check:  func(c *Config) bool { return c.OperatorDomain == "datalinc.io" },
			expect: "datalinc.io",
		},
		{
			name:   "default log format is json",
			check:  func(c *Config) bool { return c.LogFormat == "json" },
			expect: "json",
		},
		{
			name:   "listen addr format",
			check:  func(c *Config) bool { return c.ListenAddr() == "0.0.0.0:8080" },
			expect: "0.0.0.0:8080",
		},
		{
			name:   "service url falls back to database url",
			check:  func(c *Config) bool { return c.ServiceURL() == c.DatabaseURL },
			expect: "DATABASE_URL",
		},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}

func TestServiceURLOverride(t *testing.T) {
	cfg := &Config{
		DatabaseURL:        "postgres://restricted@localhost/app",
		ServiceDatabaseURL: "postgres://service@localhost/app",
	}
	if cfg.ServiceURL() != "postgres://service@localhost/app" {
		t.Errorf("ServiceURL() = %q, want service role URL", cfg.ServiceURL())
	}
}
