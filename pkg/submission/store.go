package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/datalinc/formbridge/internal/db"
)

// Store provides database operations for form submissions.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a submission Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const submissionColumns = `s.id, s.client_id, s.form_type, s.status, s.sender_name,
	s.sender_email, s.company, s.message, s.metadata, s.is_read, s.submitted_at,
	c.name, c.email`

const submissionFrom = `form_submissions s JOIN clients c ON c.id = s.client_id`

func scanSubmissionRow(row pgx.Row) (Row, error) {
	var sub Row
	err := row.Scan(
		&sub.ID, &sub.ClientID, &sub.FormType, &sub.Status, &sub.SenderName,
		&sub.SenderEmail, &sub.Company, &sub.Message, &sub.Metadata, &sub.IsRead,
		&sub.SubmittedAt, &sub.ClientName, &sub.ClientEmail,
	)
	return sub, err
}

func scanSubmissionRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	var items []Row
	for rows.Next() {
		var sub Row
		if err := rows.Scan(
			&sub.ID, &sub.ClientID, &sub.FormType, &sub.Status, &sub.SenderName,
			&sub.SenderEmail, &sub.Company, &sub.Message, &sub.Metadata, &sub.IsRead,
			&sub.SubmittedAt, &sub.ClientName, &sub.ClientEmail,
		); err != nil {
			return nil, fmt.Errorf("scanning submission row: %w", err)
		}
		items = append(items, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating submission rows: %w", err)
	}
	return items, nil
}

// Get returns a single submission by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	query := `SELECT ` + submissionColumns + ` FROM ` + submissionFrom + ` WHERE s.id = $1`
	return scanSubmissionRow(s.dbtx.QueryRow(ctx, query, id))
}

// GetAndMarkRead returns a submission and flags it as read in the same
// statement, so viewing detail never races a concurrent status update.
func (s *Store) GetAndMarkRead(ctx context.Context, id uuid.UUID) (Row, error) {
	query := `WITH marked AS (
		UPDATE form_submissions SET is_read = true WHERE id = $1 RETURNING *
	)
	SELECT ` + submissionColumns + ` FROM marked s JOIN clients c ON c.id = s.client_id`
	return scanSubmissionRow(s.dbtx.QueryRow(ctx, query, id))
}

// CreateParams holds parameters for inserting a submission from the public
// intake pipeline.
type CreateParams struct {
	ClientID    uuid.UUID
	FormType    string
	SenderName  string
	SenderEmail string
	Company     *string
	Message     string
	Metadata    json.RawMessage
}

// Create inserts a new submission with status "new" and returns its ID.
func (s *Store) Create(ctx context.Context, p CreateParams) (uuid.UUID, error) {
	meta := p.Metadata
	if len(meta) == 0 {
		meta = json.RawMessage(`{}`)
	}

	var id uuid.UUID
	err := s.dbtx.QueryRow(ctx,
		`INSERT INTO form_submissions (client_id, form_type, status, sender_name, sender_email, company, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.ClientID, p.FormType, StatusNew, p.SenderName, p.SenderEmail, p.Company, p.Message, meta,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting submission: %w", err)
	}
	return id, nil
}

// SetStatus updates a submission's lifecycle status.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.dbtx.Exec(ctx,
		`UPDATE form_submissions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("updating submission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Update applies the non-nil fields of req and returns the updated row.
func (s *Store) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (Row, error) {
	set := []string{}
	args := []any{id}
	argN := 2

	if req.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argN))
		args = append(args, *req.Status)
		argN++
	}
	if req.IsRead != nil {
		set = append(set, fmt.Sprintf("is_read = $%d", argN))
		args = append(args, *req.IsRead)
	}

	if len(set) == 0 {
		return s.Get(ctx, id)
	}

	query := fmt.Sprintf(`WITH updated AS (
		UPDATE form_submissions SET %s WHERE id = $1 RETURNING *
	)
	SELECT %s FROM updated s JOIN clients c ON c.id = s.client_id`,
		strings.Join(set, ", "), submissionColumns)
	return scanSubmissionRow(s.dbtx.QueryRow(ctx, query, args...))
}

// Delete removes a submission.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM form_submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListFiltered returns submissions matching the given filters, newest first.
func (s *Store) ListFiltered(ctx context.Context, filters ListFilters, limit, offset int) ([]Row, error) {
	where, args := buildFilterClauses(filters)
	argN := len(args) + 1
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s ORDER BY s.submitted_at DESC LIMIT $%d OFFSET $%d`,
		submissionColumns, submissionFrom, strings.Join(where, " AND "), argN, argN+1,
	)
	args = append(args, limit, offset)

	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	return scanSubmissionRows(rows)
}

// CountFiltered returns the count of submissions matching the given filters.
func (s *Store) CountFiltered(ctx context.Context, filters ListFilters) (int, error) {
	where, args := buildFilterClauses(filters)
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s`,
		submissionFrom, strings.Join(where, " AND "))

	var count int
	if err := s.dbtx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting submissions: %w", err)
	}
	return count, nil
}

func buildFilterClauses(filters ListFilters) ([]string, []any) {
	where := []string{"true"}
	var args []any
	argN := 1

	if filters.Status != "" {
		where = append(where, fmt.Sprintf("s.status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	if filters.FormType != "" {
		where = append(where, fmt.Sprintf("s.form_type = $%d", argN))
		args = append(args, filters.FormType)
		argN++
	}
	if filters.ClientID != uuid.Nil {
		where = append(where, fmt.Sprintf("s.client_id = $%d", argN))
		args = append(args, filters.ClientID)
		argN++
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf(
			"(s.sender_name ILIKE $%d OR s.sender_email ILIKE $%d OR s.message ILIKE $%d)",
			argN, argN, argN))
		args = append(args, "%"+filters.Search+"%")
	}

	return where, args
}
