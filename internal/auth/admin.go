package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/datalinc/formbridge/internal/db"
)

// AdminChecker resolves the admin role for a user id. Presence of a row, not
// its content, is what grants dashboard access.
type AdminChecker interface {
	// AdminRole returns the role for the user, or ErrNotAdmin.
	AdminRole(ctx context.Context, userID uuid.UUID) (string, error)
}

// ErrNotAdmin is returned when a user has no admin_users row.
var ErrNotAdmin = errors.New("user is not an admin")

// AdminStore looks up admin_users rows. It runs on the service pool: the
// restricted role cannot read the authorization table.
type AdminStore struct {
	dbtx db.DBTX
}

// NewAdminStore creates an AdminStore backed by the given database connection.
func NewAdminStore(dbtx db.DBTX) *AdminStore {
	return &AdminStore{dbtx: dbtx}
}

// AdminRole returns the admin role for the user id.
func (s *AdminStore) AdminRole(ctx context.Context, userID uuid.UUID) (string, error) {
	var role string
	err := s.dbtx.QueryRow(ctx, `SELECT role FROM admin_users WHERE user_id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotAdmin
		}
		return "", fmt.Errorf("looking up admin role: %w", err)
	}
	return role, nil
}

// RequireAdmin returns middleware that rejects requests whose identity has no
// admin_users row. A missing session is 401; a session without the row is 403.
// On success the identity's AdminRole is populated for downstream handlers.
// Lookup errors fail closed with 403.
func RequireAdmin(checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			if id == nil {
				respondErr(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			role, err := checker.AdminRole(r.Context(), id.UserID)
			if err != nil {
				respondErr(w, http.StatusForbidden, "forbidden", "admin access required")
				return
			}

			id.AdminRole = role
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin rejects identities whose admin role is not super_admin.
// It must run after RequireAdmin.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromContext(r.Context())
		if id == nil || id.AdminRole != RoleSuperAdmin {
			respondErr(w, http.StatusForbidden, "forbidden", "super admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
