// Package client implements the tenant business accounts whose websites may
// submit forms and whose data appears in the admin dashboard.
package client

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lifecycle statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPending  = "pending"
)

// CreateRequest is the JSON body for POST /api/v1/clients.
type CreateRequest struct {
	Name          string  `json:"name" validate:"required,min=2"`
	Email         string  `json:"email" validate:"required,email"`
	Status        string  `json:"status" validate:"omitempty,oneof=active inactive pending"`
	Domain        string  `json:"domain" validate:"required,min=3"`
	CompanyName   *string `json:"company_name"`
	ContactPerson *string `json:"contact_person"`
	ContactPhone  *string `json:"contact_phone"`
	Address       *string `json:"address"`
	Notes         *string `json:"notes"`
	AvatarURL     *string `json:"avatar_url" validate:"omitempty,url"`
}

// UpdateRequest is the JSON body for PATCH /api/v1/clients/:id.
// All fields are optional; only supplied fields are changed.
type UpdateRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=2"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Status        *string `json:"status" validate:"omitempty,oneof=active inactive pending"`
	Domain        *string `json:"domain" validate:"omitempty,min=3"`
	CompanyName   *string `json:"company_name"`
	ContactPerson *string `json:"contact_person"`
	ContactPhone  *string `json:"contact_phone"`
	Address       *string `json:"address"`
	Notes         *string `json:"notes"`
	AvatarURL     *string `json:"avatar_url" validate:"omitempty,url"`
}

// ListFilters holds the optional filter parameters for listing clients.
type ListFilters struct {
	Status string
	Search string
}

// Response is the JSON response for a single client.
type Response struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	Domain        string    `json:"domain"`
	CompanyName   *string   `json:"company_name,omitempty"`
	ContactPerson *string   `json:"contact_person,omitempty"`
	ContactPhone  *string   `json:"contact_phone,omitempty"`
	Address       *string   `json:"address,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	JoinedDate    time.Time `json:"joined_date"`
}

// Row represents a row from the clients table.
type Row struct {
	ID            uuid.UUID
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
	JoinedDate    time.Time
}

// ToResponse converts a Row to a Response DTO.
func (r *Row) ToResponse() Response {
	return Response{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		Status:        r.Status,
		Domain:        r.Domain,
		CompanyName:   r.CompanyName,
		ContactPerson: r.ContactPerson,
		ContactPhone:  r.ContactPhone,
		Address:       r.Address,
		Notes:         r.Notes,
		AvatarURL:     r.AvatarURL,
		JoinedDate:    r.JoinedDate,
	}
}

// NormalizeDomain reduces a registered domain or origin to its canonical
// stored form: lowercase host with scheme, port, path, and trailing slash
// stripped. The same normalization is applied to inbound Origin headers, so
// equality on the stored value authorizes an origin.
func NormalizeDomain(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")

	// Drop any path component.
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = s[:idx]
	}

	// Strip a trailing :port, leaving bare IPv6 intact.
	if idx := strings.LastIndex(s, ":"); idx >= 0 && !strings.Contains(s, "]") {
		if _, rest := s[:idx], s[idx+1:]; isDigits(rest) {
			s = s[:idx]
		}
	}

	return strings.TrimSuffix(s, ".")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
