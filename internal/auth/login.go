package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/datalinc/formbridge/internal/httpserver"
)

// ResetMailer sends a password reset link to a user. Implemented by
// pkg/mailer; nil disables the reset flow gracefully.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the JSON body for POST /api/auth/signup.
type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required,min=2"`
}

// ResetRequest is the JSON body for POST /api/auth/reset-password.
type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdatePasswordRequest is the JSON body for POST /api/auth/update-password.
type UpdatePasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserInfo is the public user information returned in auth responses.
type UserInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
}

// LoginHandler handles email/password sessions for the admin dashboard.
type LoginHandler struct {
	sessions *SessionManager
	users    *UserStore
	admins   AdminChecker
	limiter  *RateLimiter
	mailer   ResetMailer
	logger   *slog.Logger

	// publicBaseURL is used to build the reset link in outbound mail.
	publicBaseURL string
	secureCookies bool
}

// NewLoginHandler creates a login handler.
func NewLoginHandler(sessions *SessionManager, users *UserStore, admins AdminChecker, limiter *RateLimiter, mailer ResetMailer, publicBaseURL string, secureCookies bool, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{
		sessions:      sessions,
		users:         users,
		admins:        admins,
		limiter:       limiter,
		mailer:        mailer,
		logger:        logger,
		publicBaseURL: publicBaseURL,
		secureCookies: secureCookies,
	}
}

// Routes returns a chi.Router with all auth routes mounted.
func (h *LoginHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.handleLogin)
	r.Post("/signup", h.handleSignup)
	r.Post("/signout", h.handleSignout)
	r.Get("/me", h.handleMe)
	r.Post("/reset-password", h.handleResetPassword)
	r.Post("/update-password", h.handleUpdatePassword)
	return r
}

func (h *LoginHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	ip := ClientIP(r)
	if h.limiter != nil {
		res, err := h.limiter.Check(r.Context(), ip)
		if err != nil {
			h.logger.Warn("login rate limit check failed", "error", err)
		} else if !res.Allowed {
			httpserver.RespondError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts, try again later")
			return
		}
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.recordFailure(r.Context(), ip)
		if !errors.Is(err, pgx.ErrNoRows) {
			h.logger.Error("login: user lookup failed", "error", err)
		}
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	if user.PasswordHash == nil || *user.PasswordHash == "" {
		h.recordFailure(r.Context(), ip)
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		h.recordFailure(r.Context(), ip)
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(r.Context(), ip); err != nil {
			h.logger.Warn("login rate limit reset failed", "error", err)
		}
	}

	token, err := h.sessions.IssueToken(SessionClaims{
		Subject:     user.DisplayName,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		UserID:      user.ID.String(),
		Method:      MethodSession,
	})
	if err != nil {
		h.logger.Error("login: issuing token", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to issue session")
		return
	}

	h.setSessionCookie(w, token, h.sessions.MaxAge())
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  h.userInfo(r.Context(), user),
	})
}

func (h *LoginHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.users.GetByEmail(r.Context(), req.Email); err == nil {
		httpserver.RespondError(w, http.StatusConflict, "conflict", "an account with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("signup: hashing password", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create account")
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.DisplayName, string(hash))
	if err != nil {
		h.logger.Error("signup: creating user", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create account")
		return
	}

	// A fresh account has no admin_users row: it can sign in but the admin
	// gate keeps the dashboard closed until an operator grants access.
	httpserver.Respond(w, http.StatusCreated, map[string]any{
		"user": h.userInfo(r.Context(), user),
	})
}

func (h *LoginHandler) handleSignout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -time.Hour)
	httpserver.Respond(w, http.StatusOK, map[string]string{"message": "signed out"})
}

func (h *LoginHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	id := FromContext(r.Context())
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	user, err := h.users.Get(r.Context(), id.UserID)
	if err != nil {
		h.logger.Error("me: user lookup failed", "error", err, "user_id", id.UserID)
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "unknown user")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{"user": h.userInfo(r.Context(), user)})
}

// handleResetPassword emails a single-use reset link. The response is the
// same whether or not the account exists.
func (h *LoginHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp := map[string]string{"message": "if the account exists, a reset link has been sent"}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		httpserver.Respond(w, http.StatusOK, resp)
		return
	}

	raw, err := h.users.NewResetToken(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("reset: creating token", "error", err)
		httpserver.Respond(w, http.StatusOK, resp)
		return
	}

	if h.mailer != nil {
		link := fmt.Sprintf("%s/reset-password/confirm?token=%s", h.publicBaseURL, raw)
		if err := h.mailer.SendPasswordReset(r.Context(), user.Email, link); err != nil {
			h.logger.Error("reset: sending mail", "error", err)
		}
	}

	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *LoginHandler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req UpdatePasswordRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	userID, err := h.users.ConsumeResetToken(r.Context(), req.Token)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid or expired reset token")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("update-password: hashing", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update password")
		return
	}

	if err := h.users.SetPassword(r.Context(), userID, string(hash)); err != nil {
		h.logger.Error("update-password: storing", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update password")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *LoginHandler) userInfo(ctx context.Context, user UserRow) UserInfo {
	info := UserInfo{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
	if h.admins != nil {
		if _, err := h.admins.AdminRole(ctx, user.ID); err == nil {
			info.IsAdmin = true
		}
	}
	return info
}

func (h *LoginHandler) setSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *LoginHandler) recordFailure(ctx context.Context, ip string) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.Record(ctx, ip); err != nil {
		h.logger.Warn("recording login failure", "error", err)
	}
}
