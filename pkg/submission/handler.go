package submission

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/datalinc/formbridge/internal/audit"
	"github.com/datalinc/formbridge/internal/cache"
	"github.com/datalinc/formbridge/internal/httpserver"
)

// Handler provides HTTP handlers for the admin submissions API.
type Handler struct {
	store  *Store
	cache  *cache.Cache
	audit  *audit.Writer
	logger *slog.Logger
}

// NewHandler creates a submission Handler.
func NewHandler(store *Store, cache *cache.Cache, audit *audit.Writer, logger *slog.Logger) *Handler {
	return &Handler{store: store, cache: cache, audit: audit, logger: logger}
}

// Routes returns a chi.Router with all submission routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
	})
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParsePageParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	filters := ListFilters{
		Status:   r.URL.Query().Get("status"),
		FormType: r.URL.Query().Get("formType"),
		Search:   r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("clientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "clientId must be a valid UUID")
			return
		}
		filters.ClientID = id
	}

	key := h.cache.Key(r.Context(), "submissions", "list", r.URL.RawQuery)
	var cached httpserver.Page[Response]
	if h.cache.GetJSON(r.Context(), key, &cached) {
		httpserver.Respond(w, http.StatusOK, cached)
		return
	}

	items, err := h.store.ListFiltered(r.Context(), filters, params.Limit, params.Offset)
	if err != nil {
		h.logger.Error("listing submissions", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list submissions")
		return
	}

	total, err := h.store.CountFiltered(r.Context(), filters)
	if err != nil {
		h.logger.Error("counting submissions", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list submissions")
		return
	}

	resps := make([]Response, 0, len(items))
	for i := range items {
		resps = append(resps, items[i].ToResponse())
	}

	page := httpserver.NewPage(resps, params, total)
	h.cache.SetJSON(r.Context(), key, page)
	httpserver.Respond(w, http.StatusOK, page)
}

// handleGet returns submission detail and marks it as read.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid submission ID")
		return
	}

	row, err := h.store.GetAndMarkRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "submission not found")
			return
		}
		h.logger.Error("getting submission", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get submission")
		return
	}

	h.cache.Invalidate(r.Context(), "submissions")

	httpserver.Respond(w, http.StatusOK, row.ToResponse())
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid submission ID")
		return
	}

	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	row, err := h.store.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "submission not found")
			return
		}
		h.logger.Error("updating submission", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update submission")
		return
	}

	h.cache.Invalidate(r.Context(), "submissions")
	h.audit.LogFromRequest(r, "submission.update", "submission", row.ID,
		audit.Detail(map[string]any{"status": row.Status, "is_read": row.IsRead}))

	httpserver.Respond(w, http.StatusOK, row.ToResponse())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid submission ID")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "submission not found")
			return
		}
		h.logger.Error("deleting submission", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to delete submission")
		return
	}

	h.cache.Invalidate(r.Context(), "submissions")
	h.audit.LogFromRequest(r, "submission.delete", "submission", id, nil)

	httpserver.Respond(w, http.StatusNoContent, nil)
}
