package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/datalinc/formbridge/internal/db"
	"github.com/datalinc/formbridge/internal/httpserver"
)

// Handler provides HTTP handlers for the audit log API.
type Handler struct {
	dbtx   db.DBTX
	logger *slog.Logger
}

// NewHandler creates an audit log Handler.
func NewHandler(dbtx db.DBTX, logger *slog.Logger) *Handler {
	return &Handler{dbtx: dbtx, logger: logger}
}

// Routes returns a chi.Router with audit log routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	return r
}

// LogEntry is the JSON shape of one audit log row.
type LogEntry struct {
	ID         uuid.UUID       `json:"id"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID *uuid.UUID      `json:"resource_id,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	IPAddress  *string         `json:"ip_address,omitempty"`
	UserAgent  *string         `json:"user_agent,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParsePageParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	rows, err := h.dbtx.Query(r.Context(),
		`SELECT id, user_id, action, resource, resource_id, detail, ip_address, user_agent, created_at
		FROM audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		params.Limit, params.Offset,
	)
	if err != nil {
		h.logger.Error("listing audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list audit log")
		return
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var userID, resourceID pgtype.UUID
		if err := rows.Scan(&e.ID, &userID, &e.Action, &e.Resource, &resourceID,
			&e.Detail, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			h.logger.Error("scanning audit row", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list audit log")
			return
		}
		if userID.Valid {
			uid := uuid.UUID(userID.Bytes)
			e.UserID = &uid
		}
		if resourceID.Valid {
			rid := uuid.UUID(resourceID.Bytes)
			e.ResourceID = &rid
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("iterating audit rows", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list audit log")
		return
	}

	var total int
	if err := h.dbtx.QueryRow(r.Context(), `SELECT count(*) FROM audit_log`).Scan(&total); err != nil {
		h.logger.Error("counting audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list audit log")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewPage(entries, params, total))
}

// Detail marshals a small map into a JSON detail payload, ignoring errors.
func Detail(kv map[string]any) json.RawMessage {
	b, err := json.Marshal(kv)
	if err != nil {
		return json.RawMessage(fmt.Sprintf(`{"marshal_error":%q}`, err.Error()))
	}
	return b
}
