// Package formconfig implements the per-client, per-category form settings
// that control notification recipients and submitter-facing messaging.
package formconfig

import (
	"time"

	"github.com/google/uuid"
)

// Form categories.
const (
	TypeContact = "contact"
	TypeQuote   = "quote"
	TypeSupport = "support"
	TypeOther   = "other"
)

// DefaultSuccessMessage is shown to submitters when a config does not
// override it, and when no active config exists for the category.
const DefaultSuccessMessage = "Thank you for your submission. We will get back to you shortly."

// CustomField describes one extra input rendered by the embedded form.
type CustomField struct {
	Name     string   `json:"name" validate:"required"`
	Label    string   `json:"label" validate:"required"`
	Type     string   `json:"type" validate:"required,oneof=text textarea email tel number select checkbox"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// CreateRequest is the JSON body for POST /api/v1/form-configs.
type CreateRequest struct {
	ClientID        uuid.UUID     `json:"client_id" validate:"required"`
	FormType        string        `json:"form_type" validate:"required,oneof=contact quote support other"`
	RecipientEmails []string      `json:"recipient_emails" validate:"required,min=1,dive,email"`
	SuccessMessage  string        `json:"success_message"`
	IsActive        *bool         `json:"is_active"`
	EmailTemplate   *string       `json:"email_template"`
	CustomFields    []CustomField `json:"custom_fields" validate:"omitempty,dive"`
}

// UpdateRequest is the JSON body for PATCH /api/v1/form-configs/:id.
type UpdateRequest struct {
	FormType        *string       `json:"form_type" validate:"omitempty,oneof=contact quote support other"`
	RecipientEmails []string      `json:"recipient_emails" validate:"omitempty,min=1,dive,email"`
	SuccessMessage  *string       `json:"success_message"`
	IsActive        *bool         `json:"is_active"`
	EmailTemplate   *string       `json:"email_template"`
	CustomFields    []CustomField `json:"custom_fields" validate:"omitempty,dive"`
}

// ListFilters holds the optional filter parameters for listing form configs.
type ListFilters struct {
	ClientID uuid.UUID
	FormType string
	IsActive *bool
}

// Row represents a row from the form_configs table.
type Row struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	FormType        string
	RecipientEmails []string
	SuccessMessage  string
	IsActive        bool
	EmailTemplate   *string
	CustomFields    []CustomField
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Response is the JSON response for a single form config.
type Response struct {
	ID              uuid.UUID     `json:"id"`
	ClientID        uuid.UUID     `json:"client_id"`
	FormType        string        `json:"form_type"`
	RecipientEmails []string      `json:"recipient_emails"`
	SuccessMessage  string        `json:"success_message"`
	IsActive        bool          `json:"is_active"`
	EmailTemplate   *string       `json:"email_template,omitempty"`
	CustomFields    []CustomField `json:"custom_fields,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ToResponse converts a Row to a Response DTO.
func (r *Row) ToResponse() Response {
	return Response{
		ID:              r.ID,
		ClientID:        r.ClientID,
		FormType:        r.FormType,
		RecipientEmails: r.RecipientEmails,
		SuccessMessage:  r.SuccessMessage,
		IsActive:        r.IsActive,
		EmailTemplate:   r.EmailTemplate,
		CustomFields:    r.CustomFields,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
