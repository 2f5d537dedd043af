package formconfig

import (
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
	"github.com/datalinc/formbridge/pkg/client"
)

const uniqueViolation = "23505"

// Handler provides HTTP handlers for the admin form configs API.
type Handler struct {
	store   *Store
	clients *client.Store
	cache   *cache.Cache
	audit   *audit.Writer
	logger  *slog.Logger
}

// NewHandler creates a form config Handler.
func NewHandler(store *Store, clients *client.Store, cache *cache.Cache, audit *audit.Writer, logger *slog.Logger) *Handler {
	return &Handler{store: store, clients: clients, cache: cache, audit: audit, logger: logger}
}

// Routes returns a chi.Router with all form config routes mounted.
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

	if _, err := h.clients.Get(r.Context(), req.ClientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "client not found")
			return
		}
		h.logger.Error("resolving client for form config", "error", err, "client_id", req.ClientID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create form config")
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	msg := req.SuccessMessage
	if msg == "" {
		msg = DefaultSuccessMessage
	}

	row, err := h.store.Upsert(r.Context(), UpsertParams{
		ClientID:        req.ClientID,
		FormType:        req.FormType,
		RecipientEmails: req.RecipientEmails,
		SuccessMessage:  msg,
		IsActive:        active,
		EmailTemplate:   req.EmailTemplate,
		CustomFields:    req.CustomFields,
	})
	if err != nil {
		h.logger.Error("creating form config", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create form config")
		return
	}

	h.cache.Invalidate(r.Context(), "formconfigs")
	h.audit.LogFromRequest(r, "formconfig.create", "form_config", row.ID,
		audit.Detail(map[string]any{"client_id": row.ClientID, "form_type": row.FormType}))

	httpserver.Respond(w, http.StatusCreated, row.ToResponse())
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParsePageParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	filters, err := parseListFilters(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	key := h.cache.Key(r.Context(), "formconfigs", "list", r.URL.RawQuery)
	var cached httpserver.Page[Response]
	if h.cache.GetJSON(r.Context(), key, &cached) {
		httpserver.Respond(w, http.StatusOK, cached)
		return
	}

	items, err := h.store.ListFiltered(r.Context(), filters, params.Limit, params.Offset)
	if err != nil {
		h.logger.Error("listing form configs", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list form configs")
		return
	}

	total, err := h.store.CountFiltered(r.Context(), filters)
	if err != nil {
		h.logger.Error("counting form configs", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list form configs")
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
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid form config ID")
		return
	}

	row, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "form config not found")
			return
		}
		h.logger.Error("getting form config", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get form config")
		return
	}

	httpserver.Respond(w, http.StatusOK, row.ToResponse())
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid form config ID")
		return
	}

	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	row, err := h.store.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "form config not found")
			return
		}
		if isUniqueViolation(err) {
			httpserver.RespondError(w, http.StatusConflict, "conflict",
				"an active config already exists for this client and form type")
			return
		}
		h.logger.Error("updating form config", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update form config")
		return
	}

	h.cache.Invalidate(r.Context(), "formconfigs")
	h.audit.LogFromRequest(r, "formconfig.update", "form_config", row.ID,
		audit.Detail(map[string]any{"client_id": row.ClientID, "form_type": row.FormType}))

	httpserver.Respond(w, http.StatusOK, row.ToResponse())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid form config ID")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "form config not found")
			return
		}
		h.logger.Error("deleting form config", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to delete form config")
		return
	}

	h.cache.Invalidate(r.Context(), "formconfigs")
	h.audit.LogFromRequest(r, "formconfig.delete", "form_config", id, nil)

	httpserver.Respond(w, http.StatusNoContent, nil)
}

func parseListFilters(r *http.Request) (ListFilters, error) {
	var filters ListFilters

	if v := r.URL.Query().Get("clientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filters, errors.New("clientId must be a valid UUID")
		}
		filters.ClientID = id
	}
	filters.FormType = r.URL.Query().Get("formType")
	if v := r.URL.Query().Get("isActive"); v != "" {
		switch v {
		case "true":
			t := true
			filters.IsActive = &t
		case "false":
			f := false
			filters.IsActive = &f
		default:
			return filters, errors.New("isActive must be true or false")
		}
	}

	return filters, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
