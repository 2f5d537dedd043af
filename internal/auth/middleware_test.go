package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

// stubChecker implements AdminChecker for tests.
type stubChecker struct {
	roles map[uuid.UUID]string
	err   error
}

func (s *stubChecker) AdminRole(_ context.Context, userID uuid.UUID) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	role, ok := s.roles[userID]
	if !ok {
		return "", ErrNotAdmin
	}
	return role, nil
}

func TestRequireAuth(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects unauthenticated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		RequireAuth(okHandler).ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("passes authenticated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := NewContext(r.Context(), &Identity{UserID: uuid.New(), Method: MethodSession})
		r = r.WithContext(ctx)
		w := httptest.NewRecorder()

		RequireAuth(okHandler).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	adminID := uuid.New()
	checker := &stubChecker{roles: map[uuid.UUID]string{adminID: RoleAdmin}}
	mw := RequireAdmin(checker)

	t.Run("no session is 401", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodDelete, "/clients/x", nil)
		w := httptest.NewRecorder()

		mw(okHandler).ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("session without admin row is 403", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodDelete, "/clients/x", nil)
		ctx := NewContext(r.Context(), &Identity{UserID: uuid.New(), Method: MethodSession})
		r = r.WithContext(ctx)
		w := httptest.NewRecorder()

		mw(okHandler).ServeHTTP(w, r)

		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("admin passes and role is populated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodDelete, "/clients/x", nil)
		id := &Identity{UserID: adminID, Method: MethodSession}
		r = r.WithContext(NewContext(r.Context(), id))
		w := httptest.NewRecorder()

		mw(okHandler).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if id.AdminRole != RoleAdmin {
			t.Errorf("AdminRole = %q, want %q", id.AdminRole, RoleAdmin)
		}
	})

	t.Run("lookup error fails closed", func(t *testing.T) {
		failing := RequireAdmin(&stubChecker{err: context.DeadlineExceeded})
		r := httptest.NewRequest(http.MethodDelete, "/clients/x", nil)
		r = r.WithContext(NewContext(r.Context(), &Identity{UserID: adminID}))
		w := httptest.NewRecorder()

		failing(okHandler).ServeHTTP(w, r)

		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}

func TestRequireSuperAdmin(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		role     string
		wantCode int
	}{
		{"super admin passes", RoleSuperAdmin, http.StatusOK},
		{"admin rejected", RoleAdmin, http.StatusForbidden},
		{"no role rejected", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r = r.WithContext(NewContext(r.Context(), &Identity{UserID: uuid.New(), AdminRole: tt.role}))
			w := httptest.NewRecorder()

			RequireSuperAdmin(okHandler).ServeHTTP(w, r)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestMiddlewareSessionCookie(t *testing.T) {
	sm, _ := NewSessionManager(GenerateDevSecret(), time.Hour)
	userID := uuid.New()
	token, err := sm.IssueToken(SessionClaims{
		UserID: userID.String(),
		Email:  "jo@example.com",
		Method: MethodSession,
	})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var captured *Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	mw := Middleware(sm, nil, discardLogger())

	t.Run("valid cookie authenticates", func(t *testing.T) {
		captured = nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		w := httptest.NewRecorder()

		mw(inner).ServeHTTP(w, r)

		if captured == nil {
			t.Fatal("no identity in context")
		}
		if captured.UserID != userID {
			t.Errorf("UserID = %v, want %v", captured.UserID, userID)
		}
	})

	t.Run("garbage cookie passes through unauthenticated", func(t *testing.T) {
		captured = nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "garbage"})
		w := httptest.NewRecorder()

		mw(inner).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if captured != nil {
			t.Errorf("expected no identity, got %+v", captured)
		}
	})

	t.Run("valid bearer token authenticates", func(t *testing.T) {
		captured = nil
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		mw(inner).ServeHTTP(w, r)

		if captured == nil {
			t.Fatal("no identity in context")
		}
	})

	t.Run("invalid bearer token is 401", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()

		mw(inner).ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}
