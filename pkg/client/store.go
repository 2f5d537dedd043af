package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/datalinc/formbridge/internal/db"
)

// Store provides database operations for clients.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a client Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const clientColumns = `id, name, email, status, domain, company_name, contact_person,
	contact_phone, address, notes, avatar_url, joined_date`

func scanClientRow(row pgx.Row) (Row, error) {
	var c Row
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Status, &c.Domain, &c.CompanyName,
		&c.ContactPerson, &c.ContactPhone, &c.Address, &c.Notes, &c.AvatarURL,
		&c.JoinedDate,
	)
	return c, err
}

func scanClientRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	var items []Row
	for rows.Next() {
		var c Row
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Email, &c.Status, &c.Domain, &c.CompanyName,
			&c.ContactPerson, &c.ContactPhone, &c.Address, &c.Notes, &c.AvatarURL,
			&c.JoinedDate,
		); err != nil {
			return nil, fmt.Errorf("scanning client row: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating client rows: %w", err)
	}
	return items, nil
}

// Get returns a single client by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return scanClientRow(s.dbtx.QueryRow(ctx, query, id))
}

// GetActiveByDomain returns the active client registered for the given
// normalized domain. Used by the public intake origin allowlist.
func (s *Store) GetActiveByDomain(ctx context.Context, domain string) (Row, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE status = 'active' AND domain = $1 LIMIT 1`
	return scanClientRow(s.dbtx.QueryRow(ctx, query, domain))
}

// CreateParams holds parameters for creating a client.
type CreateParams struct {
	Name          string
	Email         string
	Status        string
	Domain        string
	CompanyName   *string
	ContactPerson *string
	ContactPhone  *string
	Address       *string
	Notes         *string
	AvatarURL     *string
}

// Create inserts a new client.
func (s *Store) Create(ctx context.Context, p CreateParams) (Row, error) {
	query := `INSERT INTO clients (
		name, email, status, domain, company_name, contact_person,
		contact_phone, address, notes, avatar_url
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING ` + clientColumns
	return scanClientRow(s.dbtx.QueryRow(ctx, query,
		p.Name, p.Email, p.Status, p.Domain, p.CompanyName, p.ContactPerson,
		p.ContactPhone, p.Address, p.Notes, p.AvatarURL,
	))
}

// Update applies the non-nil fields of req to the client and returns the
// updated row. The domain, if supplied, must already be normalized.
func (s *Store) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (Row, error) {
	set := []string{}
	args := []any{id}
	argN := 2

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, val)
		argN++
	}

	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Email != nil {
		add("email", *req.Email)
	}
	if req.Status != nil {
		add("status", *req.Status)
	}
	if req.Domain != nil {
		add("domain", NormalizeDomain(*req.Domain))
	}
	if req.CompanyName != nil {
		add("company_name", *req.CompanyName)
	}
	if req.ContactPerson != nil {
		add("contact_person", *req.ContactPerson)
	}
	if req.ContactPhone != nil {
		add("contact_phone", *req.ContactPhone)
	}
	if req.Address != nil {
		add("address", *req.Address)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}
	if req.AvatarURL != nil {
		add("avatar_url", *req.AvatarURL)
	}

	if len(set) == 0 {
		// Nothing to change; return the current row.
		return s.Get(ctx, id)
	}

	query := fmt.Sprintf(`UPDATE clients SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), clientColumns)
	return scanClientRow(s.dbtx.QueryRow(ctx, query, args...))
}

// Delete removes a client. Owned submissions and form configs cascade.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListFiltered returns clients matching the given filters, newest first.
func (s *Store) ListFiltered(ctx context.Context, filters ListFilters, limit, offset int) ([]Row, error) {
	where, args := buildFilterClauses(filters)
	argN := len(args) + 1
	query := fmt.Sprintf(
		`SELECT %s FROM clients WHERE %s ORDER BY joined_date DESC LIMIT $%d OFFSET $%d`,
		clientColumns, strings.Join(where, " AND "), argN, argN+1,
	)
	args = append(args, limit, offset)

	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	return scanClientRows(rows)
}

// CountFiltered returns the count of clients matching the given filters.
func (s *Store) CountFiltered(ctx context.Context, filters ListFilters) (int, error) {
	where, args := buildFilterClauses(filters)
	query := fmt.Sprintf(`SELECT count(*) FROM clients WHERE %s`, strings.Join(where, " AND "))

	var count int
	if err := s.dbtx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting clients: %w", err)
	}
	return count, nil
}

func buildFilterClauses(filters ListFilters) ([]string, []any) {
	where := []string{"true"}
	var args []any
	argN := 1

	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf(
			"(name ILIKE $%d OR email ILIKE $%d OR coalesce(company_name, '') ILIKE $%d)",
			argN, argN, argN))
		args = append(args, "%"+filters.Search+"%")
	}

	return where, args
}
