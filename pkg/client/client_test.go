package client

import (
	"testing"

	"github.com/datalinc/formbridge/internal/httpserver"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare domain", "example.com", "example.com"},
		{"uppercase", "Example.COM", "example.com"},
		{"https scheme", "https://example.com", "example.com"},
		{"http scheme", "http://example.com", "example.com"},
		{"trailing slash", "https://example.com/", "example.com"},
		{"path", "https://example.com/contact", "example.com"},
		{"port", "example.com:8080", "example.com"},
		{"scheme and port", "http://localhost:3000", "localhost"},
		{"subdomain", "https://app.example.com", "app.example.com"},
		{"trailing dot", "example.com.", "example.com"},
		{"surrounding whitespace", "  example.com  ", "example.com"},
		{"non-numeric after colon kept", "example.com:abc", "example.com:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDomain(tt.in); got != tt.want {
				t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCreateRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  CreateRequest{Name: "Acme Corp", Email: "ops@acme.com", Domain: "acme.com"},
		},
		{
			name:    "missing name",
			req:     CreateRequest{Email: "ops@acme.com", Domain: "acme.com"},
			wantErr: true,
		},
		{
			name:    "short name",
			req:     CreateRequest{Name: "A", Email: "ops@acme.com", Domain: "acme.com"},
			wantErr: true,
		},
		{
			name:    "bad email",
			req:     CreateRequest{Name: "Acme Corp", Email: "not-an-email", Domain: "acme.com"},
			wantErr: true,
		},
		{
			name:    "missing domain",
			req:     CreateRequest{Name: "Acme Corp", Email: "ops@acme.com"},
			wantErr: true,
		},
		{
			name:    "bad status",
			req:     CreateRequest{Name: "Acme Corp", Email: "ops@acme.com", Domain: "acme.com", Status: "archived"},
			wantErr: true,
		},
		{
			name: "explicit status",
			req:  CreateRequest{Name: "Acme Corp", Email: "ops@acme.com", Domain: "acme.com", Status: StatusPending},
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

func TestUpdateRequestValidation(t *testing.T) {
	name := "New Name"
	badEmail := "nope"

	if errs := httpserver.Validate(UpdateRequest{}); len(errs) != 0 {
		t.Errorf("empty update should be valid, got %v", errs)
	}
	if errs := httpserver.Validate(UpdateRequest{Name: &name}); len(errs) != 0 {
		t.Errorf("partial update should be valid, got %v", errs)
	}
	if errs := httpserver.Validate(UpdateRequest{Email: &badEmail}); len(errs) == 0 {
		t.Error("invalid email in update should fail validation")
	}
}
