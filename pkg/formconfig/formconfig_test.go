package formconfig

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/datalinc/formbridge/internal/httpserver"
)

func TestCreateRequestValidation(t *testing.T) {
	clientID := uuid.New()

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{
			name: "valid",
			req: CreateRequest{
				ClientID:        clientID,
				FormType:        TypeContact,
				RecipientEmails: []string{"ops@acme.com"},
			},
		},
		{
			name: "missing client id",
			req: CreateRequest{
				FormType:        TypeContact,
				RecipientEmails: []string{"ops@acme.com"},
			},
			wantErr: true,
		},
		{
			name: "unknown form type",
			req: CreateRequest{
				ClientID:        clientID,
				FormType:        "newsletter",
				RecipientEmails: []string{"ops@acme.com"},
			},
			wantErr: true,
		},
		{
			name: "empty recipients",
			req: CreateRequest{
				ClientID:        clientID,
				FormType:        TypeQuote,
				RecipientEmails: []string{},
			},
			wantErr: true,
		},
		{
			name: "invalid recipient",
			req: CreateRequest{
				ClientID:        clientID,
				FormType:        TypeQuote,
				RecipientEmails: []string{"ops@acme.com", "not-an-email"},
			},
			wantErr: true,
		},
		{
			name: "custom field missing label",
			req: CreateRequest{
				ClientID:        clientID,
				FormType:        TypeSupport,
				RecipientEmails: []string{"ops@acme.com"},
				CustomFields:    []CustomField{{Name: "budget", Type: "number"}},
			},
			wantErr: true,
		},
		{
			name: "custom field with options",
			req: CreateRequest{
				ClientID:        clientID,
				FormType:        TypeSupport,
				RecipientEmails: []string{"ops@acme.com"},
				CustomFields: []CustomField{{
					Name:    "urgency",
					Label:   "Urgency",
					Type:    "select",
					Options: []string{"low", "high"},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := httpserver.Validate(tt.req)
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestParseListFilters(t *testing.T) {
	clientID := uuid.New()

	r := httptest.NewRequest("GET", "/?clientId="+clientID.String()+"&formType=quote&isActive=true", nil)
	filters, err := parseListFilters(r)
	if err != nil {
		t.Fatalf("parseListFilters: %v", err)
	}
	if filters.ClientID != clientID {
		t.Errorf("ClientID = %v, want %v", filters.ClientID, clientID)
	}
	if filters.FormType != TypeQuote {
		t.Errorf("FormType = %q, want %q", filters.FormType, TypeQuote)
	}
	if filters.IsActive == nil || !*filters.IsActive {
		t.Errorf("IsActive = %v, want true", filters.IsActive)
	}

	if _, err := parseListFilters(httptest.NewRequest("GET", "/?clientId=nope", nil)); err == nil {
		t.Error("expected error for malformed clientId")
	}
	if _, err := parseListFilters(httptest.NewRequest("GET", "/?isActive=maybe", nil)); err == nil {
		t.Error("expected error for malformed isActive")
	}
}
