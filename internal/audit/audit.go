// Package audit records admin mutations to an append-only audit_log table.
// Writes are async and best-effort: a full buffer drops entries rather than
// blocking the request path.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datalinc/formbridge/internal/auth"
)

// Entry represents a single audit log entry to be written.
type Entry struct {
	UserID     pgtype.UUID
	Action     string
	Resource   string
	ResourceID uuid.UUID
	Detail     json.RawMessage
	IPAddress  *string
	UserAgent  *string
}

// Writer is an async, buffered audit log writer.
// Entries are sent to an internal channel and flushed by a background goroutine.
type Writer struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	entries chan Entry
	wg      sync.WaitGroup
}

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// NewWriter creates an audit Writer. Call Start to begin processing entries.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{
		pool:    pool,
		logger:  logger,
		entries: make(chan Entry, bufferSize),
	}
}

// Start begins the background goroutine that flushes audit entries to the database.
// It returns when the context is cancelled and all pending entries are flushed.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close waits for all pending entries to be flushed.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Log enqueues an audit entry for async writing. It never blocks the caller;
// if the buffer is full the entry is dropped and a warning is logged.
func (w *Writer) Log(entry Entry) {
	select {
	case w.entries <- entry:
	default:
		w.logger.Warn("audit log buffer full, dropping entry",
			"action", entry.Action, "resource", entry.Resource)
	}
}

// LogFromRequest is a convenience method that extracts identity, IP, and user
// agent from the request context, then enqueues the entry.
func (w *Writer) LogFromRequest(r *http.Request, action, resource string, resourceID uuid.UUID, detail json.RawMessage) {
	entry := Entry{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Detail:     detail,
	}

	if id := auth.FromContext(r.Context()); id != nil {
		entry.UserID = pgtype.UUID{Bytes: id.UserID, Valid: true}
	}

	if ip := auth.ClientIP(r); ip != "" {
		entry.IPAddress = &ip
	}

	if ua := r.Header.Get("User-Agent"); ua != "" {
		entry.UserAgent = &ua
	}

	w.Log(entry)
}

// run is the background loop that drains the entries channel.
func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, flushBatch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				// Channel closed; flush remaining and exit.
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			// Drain any remaining entries.
			for {
				select {
				case entry, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// flush writes a batch of entries to the database.
func (w *Writer) flush(entries []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, e := range entries {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO audit_log (user_id, action, resource, resource_id, detail, ip_address, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.UserID, e.Action, e.Resource,
			pgtype.UUID{Bytes: e.ResourceID, Valid: e.ResourceID != uuid.Nil},
			e.Detail, e.IPAddress, e.UserAgent,
		)
		if err != nil {
			w.logger.Error("writing audit log entry", "error", err,
				"action", e.Action, "resource", e.Resource)
		}
	}
}
