// Package auth implements session authentication for the admin dashboard and
// the admin-gate authorization check backed by the admin_users table.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Authentication methods.
const (
	MethodSession = "session"
	MethodOIDC    = "oidc"
)

// Admin roles stored in admin_users.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// SessionCookie is the name of the session cookie set on login.
const SessionCookie = "fb_session"

// Identity describes the authenticated caller of a request.
type Identity struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
	Method      string

	// AdminRole is populated by the admin gate middleware; empty until then.
	AdminRole string
}

// IsAdmin reports whether the admin gate granted this identity a role.
func (id *Identity) IsAdmin() bool {
	return id.AdminRole == RoleAdmin || id.AdminRole == RoleSuperAdmin
}

type identityKey struct{}

// NewContext returns a context carrying the identity.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in the context, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
