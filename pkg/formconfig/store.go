package formconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/datalinc/formbridge/internal/db"
)

// Store provides database operations for form configs.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a form config Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const configColumns = `id, client_id, form_type, recipient_emails, success_message,
	is_active, email_template, custom_fields, created_at, updated_at`

func scanConfigRow(row pgx.Row) (Row, error) {
	var c Row
	err := row.Scan(
		&c.ID, &c.ClientID, &c.FormType, &c.RecipientEmails, &c.SuccessMessage,
		&c.IsActive, &c.EmailTemplate, &c.CustomFields, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func scanConfigRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	var items []Row
	for rows.Next() {
		var c Row
		if err := rows.Scan(
			&c.ID, &c.ClientID, &c.FormType, &c.RecipientEmails, &c.SuccessMessage,
			&c.IsActive, &c.EmailTemplate, &c.CustomFields, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning form config row: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating form config rows: %w", err)
	}
	return items, nil
}

// Get returns a single form config by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	query := `SELECT ` + configColumns + ` FROM form_configs WHERE id = $1`
	return scanConfigRow(s.dbtx.QueryRow(ctx, query, id))
}

// GetActive returns the active config for the given client and form category.
func (s *Store) GetActive(ctx context.Context, clientID uuid.UUID, formType string) (Row, error) {
	query := `SELECT ` + configColumns + ` FROM form_configs
		WHERE client_id = $1 AND form_type = $2 AND is_active LIMIT 1`
	return scanConfigRow(s.dbtx.QueryRow(ctx, query, clientID, formType))
}

// UpsertParams holds parameters for creating a form config.
type UpsertParams struct {
	ClientID        uuid.UUID
	FormType        string
	RecipientEmails []string
	SuccessMessage  string
	IsActive        bool
	EmailTemplate   *string
	CustomFields    []CustomField
}

// Upsert inserts a form config. An active config for a (client, category)
// pair that already has one replaces the existing config in place, so the
// one-active-config invariant holds without a read-modify-write race.
func (s *Store) Upsert(ctx context.Context, p UpsertParams) (Row, error) {
	query := `INSERT INTO form_configs (
		client_id, form_type, recipient_emails, success_message,
		is_active, email_template, custom_fields
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (client_id, form_type) WHERE is_active DO UPDATE SET
		recipient_emails = excluded.recipient_emails,
		success_message = excluded.success_message,
		email_template = excluded.email_template,
		custom_fields = excluded.custom_fields,
		updated_at = now()
	RETURNING ` + configColumns
	if p.CustomFields == nil {
		p.CustomFields = []CustomField{}
	}
	return scanConfigRow(s.dbtx.QueryRow(ctx, query,
		p.ClientID, p.FormType, p.RecipientEmails, p.SuccessMessage,
		p.IsActive, p.EmailTemplate, p.CustomFields,
	))
}

// Update applies the non-nil fields of req and returns the updated row.
// Activating a config whose (client, category) pair already has a different
// active config violates the partial unique index and surfaces as a conflict.
func (s *Store) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (Row, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}
	argN := 2

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, val)
		argN++
	}

	if req.FormType != nil {
		add("form_type", *req.FormType)
	}
	if req.RecipientEmails != nil {
		add("recipient_emails", req.RecipientEmails)
	}
	if req.SuccessMessage != nil {
		add("success_message", *req.SuccessMessage)
	}
	if req.IsActive != nil {
		add("is_active", *req.IsActive)
	}
	if req.EmailTemplate != nil {
		add("email_template", *req.EmailTemplate)
	}
	if req.CustomFields != nil {
		add("custom_fields", req.CustomFields)
	}

	query := fmt.Sprintf(`UPDATE form_configs SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), configColumns)
	return scanConfigRow(s.dbtx.QueryRow(ctx, query, args...))
}

// Delete removes a form config.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM form_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting form config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListFiltered returns form configs matching the given filters, newest first.
func (s *Store) ListFiltered(ctx context.Context, filters ListFilters, limit, offset int) ([]Row, error) {
	where, args := buildFilterClauses(filters)
	argN := len(args) + 1
	query := fmt.Sprintf(
		`SELECT %s FROM form_configs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		configColumns, strings.Join(where, " AND "), argN, argN+1,
	)
	args = append(args, limit, offset)

	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing form configs: %w", err)
	}
	return scanConfigRows(rows)
}

// CountFiltered returns the count of form configs matching the given filters.
func (s *Store) CountFiltered(ctx context.Context, filters ListFilters) (int, error) {
	where, args := buildFilterClauses(filters)
	query := fmt.Sprintf(`SELECT count(*) FROM form_configs WHERE %s`, strings.Join(where, " AND "))

	var count int
	if err := s.dbtx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting form configs: %w", err)
	}
	return count, nil
}

func buildFilterClauses(filters ListFilters) ([]string, []any) {
	where := []string{"true"}
	var args []any
	argN := 1

	if filters.ClientID != uuid.Nil {
		where = append(where, fmt.Sprintf("client_id = $%d", argN))
		args = append(args, filters.ClientID)
		argN++
	}
	if filters.FormType != "" {
		where = append(where, fmt.Sprintf("form_type = $%d", argN))
		args = append(args, filters.FormType)
		argN++
	}
	if filters.IsActive != nil {
		where = append(where, fmt.Sprintf("is_active = $%d", argN))
		args = append(args, *filters.IsActive)
	}

	return where, args
}
