// Package submission implements the admin side of form submissions: listing,
// detail, status updates, and deletion. Rows are created by the public intake
// pipeline, never through this API.
package submission

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Lifecycle statuses. New submissions start as "new"; "pending" is also set
// automatically when the notification email fails to send.
const (
	StatusNew       = "new"
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// UpdateRequest is the JSON body for PATCH /api/v1/submissions/:id.
type UpdateRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=new pending completed rejected"`
	IsRead *bool   `json:"is_read"`
}

// ListFilters holds the optional filter parameters for listing submissions.
type ListFilters struct {
	Status   string
	FormType string
	ClientID uuid.UUID
	Search   string
}

// Row represents a row from the form_submissions table, joined with a
// summary of the owning client.
type Row struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	FormType    string
	Status      string
	SenderName  string
	SenderEmail string
	Company     *string
	Message     string
	Metadata    json.RawMessage
	IsRead      bool
	SubmittedAt time.Time

	ClientName  string
	ClientEmail string
}

// ClientSummary is the joined client information embedded in responses.
type ClientSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Response is the JSON response for a single submission.
type Response struct {
	ID          uuid.UUID       `json:"id"`
	ClientID    uuid.UUID       `json:"client_id"`
	FormType    string          `json:"form_type"`
	Status      string          `json:"status"`
	SenderName  string          `json:"sender_name"`
	SenderEmail string          `json:"sender_email"`
	Company     *string         `json:"company,omitempty"`
	Message     string          `json:"message"`
	Metadata    json.RawMessage `json:"metadata"`
	IsRead      bool            `json:"is_read"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Client      ClientSummary   `json:"client"`
}

// ToResponse converts a Row to a Response DTO.
func (r *Row) ToResponse() Response {
	meta := r.Metadata
	if len(meta) == 0 {
		meta = json.RawMessage(`{}`)
	}
	return Response{
		ID:          r.ID,
		ClientID:    r.ClientID,
		FormType:    r.FormType,
		Status:      r.Status,
		SenderName:  r.SenderName,
		SenderEmail: r.SenderEmail,
		Company:     r.Company,
		Message:     r.Message,
		Metadata:    meta,
		IsRead:      r.IsRead,
		SubmittedAt: r.SubmittedAt,
		Client:      ClientSummary{ID: r.ClientID, Name: r.ClientName, Email: r.ClientEmail},
	}
}
