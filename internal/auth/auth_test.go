package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	// No identity yet.
	if id := FromContext(ctx); id != nil {
		t.Fatalf("expected nil, got %+v", id)
	}

	userID := uuid.New()
	identity := &Identity{
		UserID:      userID,
		Email:       "test@example.com",
		DisplayName: "Test User",
		Method:      MethodSession,
	}
	ctx = NewContext(ctx, identity)

	got := FromContext(ctx)
	if got == nil {
		t.Fatal("expected identity, got nil")
	}
	if got.UserID != userID {
		t.Errorf("UserID = %v, want %v", got.UserID, userID)
	}
	if got.Email != "test@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "test@example.com")
	}
	if got.IsAdmin() {
		t.Error("identity without admin role reports IsAdmin")
	}

	got.AdminRole = RoleAdmin
	if !got.IsAdmin() {
		t.Error("identity with admin role does not report IsAdmin")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	sm, err := NewSessionManager(GenerateDevSecret(), time.Hour)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}

	userID := uuid.New()
	token, err := sm.IssueToken(SessionClaims{
		Subject:     "Jo Lee",
		Email:       "jo@example.com",
		DisplayName: "Jo Lee",
		UserID:      userID.String(),
		Method:      MethodSession,
	})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := sm.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != userID.String() {
		t.Errorf("UserID = %q, want %q", claims.UserID, userID.String())
	}
	if claims.Email != "jo@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "jo@example.com")
	}
}

func TestSessionRejectsTampered(t *testing.T) {
	sm, _ := NewSessionManager(GenerateDevSecret(), time.Hour)
	other, _ := NewSessionManager(GenerateDevSecret(), time.Hour)

	token, err := sm.IssueToken(SessionClaims{UserID: uuid.New().String()})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token signed with a different key validated")
	}
	if _, err := sm.ValidateToken(token + "x"); err == nil {
		t.Fatal("tampered token validated")
	}
}

func TestSessionSecretTooShort(t *testing.T) {
	if _, err := NewSessionManager("short", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}
