package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCClaims are the JWT claims we extract from a hosted-identity token.
type OIDCClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// OIDCAuthenticator validates bearer tokens issued by a hosted identity
// provider. The provider's user id (sub) must be the UUID keyed into
// admin_users for the admin gate to grant access.
type OIDCAuthenticator struct {
	Verifier *oidc.IDTokenVerifier
}

// NewOIDCAuthenticator creates an authenticator by performing OIDC discovery
// against the issuer URL. This makes a network call to fetch the provider's
// public keys.
func NewOIDCAuthenticator(ctx context.Context, issuerURL, clientID string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering OIDC provider %s: %w", issuerURL, err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})

	return &OIDCAuthenticator{Verifier: verifier}, nil
}

// Authenticate validates a Bearer token and returns the extracted claims.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, bearerToken string) (*OIDCClaims, error) {
	token := strings.TrimPrefix(bearerToken, "Bearer ")
	token = strings.TrimPrefix(token, "bearer ")
	token = strings.TrimSpace(token)

	if token == "" {
		return nil, fmt.Errorf("empty bearer token")
	}

	idToken, err := a.Verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing sub claim")
	}

	return &claims, nil
}
