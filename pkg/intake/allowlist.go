// Package intake implements the public form submission pipeline: origin
// allowlisting, CORS, payload validation, persistence, and notification.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/datalinc/formbridge/pkg/client"
)

// ClientDirectory is the subset of the client store used for origin checks.
type ClientDirectory interface {
	GetActiveByDomain(ctx context.Context, domain string) (client.Row, error)
}

// Checker decides whether an Origin header may call the public submission API.
type Checker struct {
	clients        ClientDirectory
	operatorDomain string
	production     bool
	logger         *slog.Logger
}

// NewChecker creates an origin Checker. operatorDomain is the apex domain
// whose subdomains are always allowed; in non-production deployments any
// localhost origin is also allowed.
func NewChecker(clients ClientDirectory, operatorDomain string, production bool, logger *slog.Logger) *Checker {
	return &Checker{
		clients:        clients,
		operatorDomain: strings.ToLower(operatorDomain),
		production:     production,
		logger:         logger,
	}
}

// Allowed reports whether origin may call the submission API. A lookup error
// rejects the origin: the allowlist fails closed. Allowed has no side effects.
func (c *Checker) Allowed(ctx context.Context, origin string) bool {
	if origin == "" {
		return false
	}

	host := client.NormalizeDomain(origin)
	if host == "" {
		return false
	}

	// The operator's own apex and subdomains are always allowed.
	if host == c.operatorDomain || strings.HasSuffix(host, "."+c.operatorDomain) {
		return true
	}

	if host == "localhost" {
		if !c.production {
			return true
		}
		// In production, localhost is only allowed when a client record is
		// deliberately registered with the literal domain "localhost".
		return c.lookup(ctx, "localhost")
	}

	return c.lookup(ctx, host)
}

func (c *Checker) lookup(ctx context.Context, domain string) bool {
	_, err := c.clients.GetActiveByDomain(ctx, domain)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			c.logger.Warn("origin allowlist lookup failed, rejecting", "domain", domain, "error", err)
		}
		return false
	}
	return true
}
