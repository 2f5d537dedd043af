// Package dashboard aggregates counts for the admin overview page.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/datalinc/formbridge/internal/cache"
	"github.com/datalinc/formbridge/internal/db"
	"github.com/datalinc/formbridge/internal/httpserver"
	"github.com/datalinc/formbridge/pkg/submission"
)

// Stats is the response for GET /api/v1/dashboard/stats.
type Stats struct {
	ClientsByStatus     map[string]int        `json:"clients_by_status"`
	SubmissionsByStatus map[string]int        `json:"submissions_by_status"`
	UnreadSubmissions   int                   `json:"unread_submissions"`
	RecentSubmissions   []submission.Response `json:"recent_submissions"`
}

// Store reads dashboard aggregates.
type Store struct {
	dbtx        db.DBTX
	submissions *submission.Store
}

// NewStore creates a dashboard Store.
func NewStore(dbtx db.DBTX, submissions *submission.Store) *Store {
	return &Store{dbtx: dbtx, submissions: submissions}
}

const recentLimit = 5

// Stats collects all dashboard aggregates.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		ClientsByStatus:     map[string]int{},
		SubmissionsByStatus: map[string]int{},
	}

	if err := s.countByStatus(ctx, "clients", stats.ClientsByStatus); err != nil {
		return Stats{}, err
	}
	if err := s.countByStatus(ctx, "form_submissions", stats.SubmissionsByStatus); err != nil {
		return Stats{}, err
	}

	if err := s.dbtx.QueryRow(ctx,
		`SELECT count(*) FROM form_submissions WHERE NOT is_read`).Scan(&stats.UnreadSubmissions); err != nil {
		return Stats{}, fmt.Errorf("counting unread submissions: %w", err)
	}

	recent, err := s.submissions.ListFiltered(ctx, submission.ListFilters{}, recentLimit, 0)
	if err != nil {
		return Stats{}, fmt.Errorf("listing recent submissions: %w", err)
	}
	stats.RecentSubmissions = make([]submission.Response, 0, len(recent))
	for i := range recent {
		stats.RecentSubmissions = append(stats.RecentSubmissions, recent[i].ToResponse())
	}

	return stats, nil
}

func (s *Store) countByStatus(ctx context.Context, table string, out map[string]int) error {
	rows, err := s.dbtx.Query(ctx,
		fmt.Sprintf(`SELECT status, count(*) FROM %s GROUP BY status`, table))
	if err != nil {
		return fmt.Errorf("counting %s by status: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return fmt.Errorf("scanning %s status count: %w", table, err)
		}
		out[status] = count
	}
	return rows.Err()
}

// Handler serves the dashboard API.
type Handler struct {
	store  *Store
	cache  *cache.Cache
	logger *slog.Logger
}

// NewHandler creates a dashboard Handler.
func NewHandler(store *Store, cache *cache.Cache, logger *slog.Logger) *Handler {
	return &Handler{store: store, cache: cache, logger: logger}
}

// Routes returns a chi.Router with the dashboard routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", h.handleStats)
	return r
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	key := h.cache.Key(r.Context(), "submissions", "dashboard")
	var cached Stats
	if h.cache.GetJSON(r.Context(), key, &cached) {
		httpserver.Respond(w, http.StatusOK, cached)
		return
	}

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("collecting dashboard stats", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to collect stats")
		return
	}

	h.cache.SetJSON(r.Context(), key, stats)
	httpserver.Respond(w, http.StatusOK, stats)
}
