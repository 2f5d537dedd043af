package intake

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/datalinc/formbridge/internal/auth"
	"github.com/datalinc/formbridge/internal/httpserver"
	"github.com/datalinc/formbridge/internal/telemetry"
)

// Handler serves the public submission endpoint.
type Handler struct {
	checker *Checker
	service *Service
	limiter *Limiter
	logger  *slog.Logger
}

// NewHandler creates an intake Handler.
func NewHandler(checker *Checker, service *Service, limiter *Limiter, logger *slog.Logger) *Handler {
	return &Handler{checker: checker, service: service, limiter: limiter, logger: logger}
}

// Routes returns a chi.Router with the public intake routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Options("/submit", h.handlePreflight)
	r.Post("/submit", h.handleSubmit)
	return r
}

// SubmitResponse is the success envelope returned to the submitter.
type SubmitResponse struct {
	Message string    `json:"message"`
	ID      uuid.UUID `json:"id"`
	Success bool      `json:"success"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.checker.Allowed(r.Context(), origin) {
		telemetry.SubmissionsRejectedTotal.WithLabelValues("origin").Inc()
		httpserver.RespondError(w, http.StatusForbidden, "forbidden", "origin not allowed")
		return
	}
	applyCORSHeaders(w, origin)

	if ip := auth.ClientIP(r); !h.limiter.Allow(r.Context(), ip) {
		telemetry.SubmissionsRejectedTotal.WithLabelValues("rate_limited").Inc()
		httpserver.RespondError(w, http.StatusTooManyRequests, "rate_limited", "too many submissions, try again later")
		return
	}

	var req SubmitRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		telemetry.SubmissionsRejectedTotal.WithLabelValues("validation").Inc()
		return
	}

	result, err := h.service.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			telemetry.SubmissionsRejectedTotal.WithLabelValues("unknown_client").Inc()
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "client not found")
			return
		}
		h.logger.Error("processing submission", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to process submission")
		return
	}

	httpserver.Respond(w, http.StatusOK, SubmitResponse{
		Message: result.Message,
		ID:      result.ID,
		Success: true,
	})
}
