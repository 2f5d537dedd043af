package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Middleware returns an HTTP middleware that authenticates the caller via the
// session cookie or a bearer token and stores the resulting Identity in the
// request context.
//
// Authentication precedence:
//  1. Authorization: Bearer <token>  →  OIDC validation when configured,
//     otherwise treated as a session JWT
//  2. fb_session cookie              →  session JWT validation
//
// Requests without credentials pass through unauthenticated; RequireAuth
// rejects them at the route group boundary.
func Middleware(sessions *SessionManager, oidcAuth *OIDCAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity *Identity

			// 1. Bearer token.
			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") || strings.HasPrefix(authHeader, "bearer ") {
				if oidcAuth != nil {
					claims, err := oidcAuth.Authenticate(r.Context(), authHeader)
					if err != nil {
						logger.Warn("OIDC authentication failed", "error", err)
						respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid token")
						return
					}

					userID, err := uuid.Parse(claims.Subject)
					if err != nil {
						logger.Warn("OIDC sub is not a UUID", "sub", claims.Subject)
						respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid token subject")
						return
					}

					identity = &Identity{
						UserID:      userID,
						Email:       claims.Email,
						DisplayName: claims.Name,
						Method:      MethodOIDC,
					}
				} else {
					raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(authHeader, "Bearer "), "bearer "))
					id, err := identityFromSession(sessions, raw)
					if err != nil {
						logger.Warn("bearer session validation failed", "error", err)
						respondErr(w, http.StatusUnauthorized, "unauthorized", "invalid token")
						return
					}
					identity = id
				}
			}

			// 2. Session cookie.
			if identity == nil {
				if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
					id, err := identityFromSession(sessions, cookie.Value)
					if err != nil {
						// Expired or tampered cookie: treat as unauthenticated
						// rather than failing, so login pages keep working.
						logger.Debug("session cookie invalid", "error", err)
					} else {
						identity = id
					}
				}
			}

			ctx := r.Context()
			if identity != nil {
				ctx = NewContext(ctx, identity)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFromSession(sessions *SessionManager, raw string) (*Identity, error) {
	claims, err := sessions.ValidateToken(raw)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, err
	}

	return &Identity{
		UserID:      userID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Method:      MethodSession,
	}, nil
}

// RequireAuth rejects requests that have no authenticated identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			respondErr(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondErr(w http.ResponseWriter, status int, errStr, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errStr,
		"message": message,
	})
}
