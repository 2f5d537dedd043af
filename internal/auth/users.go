package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/datalinc/formbridge/internal/db"
)

// UserRow is a dashboard user account.
type UserRow struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserStore provides database operations for dashboard user accounts.
type UserStore struct {
	dbtx db.DBTX
}

// NewUserStore creates a UserStore backed by the given database connection.
func NewUserStore(dbtx db.DBTX) *UserStore {
	return &UserStore{dbtx: dbtx}
}

const userColumns = `id, email, display_name, password_hash, created_at, updated_at`

// GetByEmail returns the user with the given email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (UserRow, error) {
	var u UserRow
	err := s.dbtx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Get returns the user with the given id.
func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (UserRow, error) {
	var u UserRow
	err := s.dbtx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a new user account.
func (s *UserStore) Create(ctx context.Context, email, displayName, passwordHash string) (UserRow, error) {
	var u UserRow
	err := s.dbtx.QueryRow(ctx,
		`INSERT INTO users (email, display_name, password_hash) VALUES ($1, $2, $3)
		RETURNING `+userColumns, email, displayName, passwordHash,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return UserRow{}, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// SetPassword replaces the user's password hash.
func (s *UserStore) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := s.dbtx.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("setting password: %w", err)
	}
	return nil
}

// --- Password reset tokens ---

// resetTokenTTL is how long a password reset link stays valid.
const resetTokenTTL = time.Hour

// NewResetToken generates a single-use reset token for the user, stores the
// SHA-256 of it, and returns the raw token for inclusion in the email link.
func (s *UserStore) NewResetToken(ctx context.Context, userID uuid.UUID) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	raw := hex.EncodeToString(b)

	digest := sha256.Sum256([]byte(raw))
	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO password_reset_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		userID, hex.EncodeToString(digest[:]), time.Now().Add(resetTokenTTL),
	)
	if err != nil {
		return "", fmt.Errorf("storing reset token: %w", err)
	}
	return raw, nil
}

// ConsumeResetToken validates a raw token and marks it used, returning the
// owning user id. A token is valid once, before its expiry.
func (s *UserStore) ConsumeResetToken(ctx context.Context, raw string) (uuid.UUID, error) {
	digest := sha256.Sum256([]byte(raw))

	var userID uuid.UUID
	err := s.dbtx.QueryRow(ctx,
		`UPDATE password_reset_tokens
		SET used_at = now()
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING user_id`,
		hex.EncodeToString(digest[:]),
	).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("consuming reset token: %w", err)
	}
	return userID, nil
}
