package client

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/datalinc/formbridge/internal/audit"
	"github.com/datalinc/formbridge/internal/cache"
	"github.com/datalinc/formbridge/internal/httpserver"
)

const uniqueViolation = "23505"

// Handler provides HTTP handlers for the admin clients API.
type Handler struct {
	store  *Store
	cache  *cache.Cache
	audit  *audit.Writer
	logger *slog.Logger
}

// NewHandler creates a client Handler.
func NewHandler(store *Store, cache *cache.Cache, audit *audit.Writer, logger *slog.Logger) *Handler {
	return &Handler{store: store, cache: cache, audit: audit, logger: logger}
}

// Routes returns a chi.Router with all client routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
	})
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	status := req.Status
	if status == "" {
		status = StatusActive
	}

	row, err := h.store.Create(r.Context(), CreateParams{
		Name:          req.Name,
		Email:         req.Email,
		Status:        status,
		Domain:        NormalizeDomain(req.Domain),
		CompanyName:   req.CompanyName,
		ContactPerson: req.ContactPerson,
		ContactPhone:  req.ContactPhone,
		Address:       req.Address,
		Notes:         req.Notes,
		AvatarURL:     req.AvatarURL,
	})
	if err != nil {
		if isUniqueViolation(err) {
			httpserver.RespondError(w, http.StatusConflict, "conflict",
				"an active client is already registered for this domain")
			return
		}
		h.logger.Error("creating client", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create client")
		return
	}

	h.cache.Invalidate(r.Context(), "clients")
	h.audit.LogFromRequest(r, "client.create", "client", row.ID, auditDetail(row))

	httpserver.Respond(w, http.StatusCreated, row.ToResponse())
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParsePageParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	filters := ListFilters{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}

	key := h.cache.Key(r.Context(), "clients", "list",
		filters.Status, filters.Search, r.URL.Query().Get("page"), r.URL.Query().Get("limit"))
	var cached httpserver.Page[Response]
	if h.cache.GetJSON(r.Context(), key, &cached) {
		httpserver.Respond(w, http.StatusOK, cached)
		return
	}

	items, err := h.store.ListFiltered(r.Context(), filters, params.Limit, params.Offset)
	if err != nil {
		h.logger.Error("listing clients", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list clients")
		return
	}

	total, err := h.store.CountFiltered(r.Context(), filters)
	if err != nil {
		h.logger.Error("counting clients", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list clients")
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

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid client ID")
		return
	}

	row, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "client not found")
			return
		}
		h.logger.Error("getting client", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get client")
		return
	}

	httpserver.Respond(w, http.StatusOK, row.ToResponse())
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid client ID")
		return
	}

	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	row, err := h.store.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "client not found")
			return
		}
		if isUniqueViolation(err) {
			httpserver.RespondError(w, http.StatusConflict, "conflict",
				"an active client is already registered for this domain")
			return
		}
		h.logger.Error("updating client", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update client")
		return
	}

	h.cache.Invalidate(r.Context(), "clients")
	h.audit.LogFromRequest(r, "client.update", "client", row.ID, auditDetail(row))

	httpserver.Respond(w, http.StatusOK, row.ToResponse())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid client ID")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "client not found")
			return
		}
		h.logger.Error("deleting client", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to delete client")
		return
	}

	h.cache.Invalidate(r.Context(), "clients")
	h.cache.Invalidate(r.Context(), "submissions")
	h.cache.Invalidate(r.Context(), "formconfigs")
	h.audit.LogFromRequest(r, "client.delete", "client", id, nil)

	httpserver.Respond(w, http.StatusNoContent, nil)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func auditDetail(row Row) json.RawMessage {
	return audit.Detail(map[string]any{"name": row.Name, "domain": row.Domain, "status": row.Status})
}
