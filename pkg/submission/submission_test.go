package submission

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/datalinc/formbridge/internal/httpserver"
)

func TestUpdateRequestValidation(t *testing.T) {
	completed := StatusCompleted
	bogus := "archived"
	read := true

	if errs := httpserver.Validate(UpdateRequest{}); len(errs) != 0 {
		t.Errorf("empty update should be valid, got %v", errs)
	}
	if errs := httpserver.Validate(UpdateRequest{Status: &completed, IsRead: &read}); len(errs) != 0 {
		t.Errorf("status update should be valid, got %v", errs)
	}
	if errs := httpserver.Validate(UpdateRequest{Status: &bogus}); len(errs) == 0 {
		t.Error("unknown status should fail validation")
	}
}

func TestToResponse(t *testing.T) {
	company := "Acme Corp"
	row := Row{
		ID:          uuid.New(),
		ClientID:    uuid.New(),
		FormType:    "contact",
		Status:      StatusNew,
		SenderName:  "Ada",
		SenderEmail: "ada@example.com",
		Company:     &company,
		Message:     "Hello there, I would like a quote.",
		SubmittedAt: time.Now(),
		ClientName:  "Acme",
		ClientEmail: "ops@acme.com",
	}

	resp := row.ToResponse()
	if resp.Client.ID != row.ClientID || resp.Client.Name != "Acme" || resp.Client.Email != "ops@acme.com" {
		t.Errorf("client summary = %+v", resp.Client)
	}
	if string(resp.Metadata) != "{}" {
		t.Errorf("nil metadata should serialize as empty object, got %q", resp.Metadata)
	}

	row.Metadata = json.RawMessage(`{"budget":"10k"}`)
	if got := string(row.ToResponse().Metadata); got != `{"budget":"10k"}` {
		t.Errorf("metadata = %q", got)
	}
}
