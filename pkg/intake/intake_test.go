package intake

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/datalinc/formbridge/pkg/client"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubDirectory serves a fixed set of allowed domains.
type stubDirectory struct {
	domains map[string]bool
	err     error
	calls   int
}

func (d *stubDirectory) GetActiveByDomain(_ context.Context, domain string) (client.Row, error) {
	d.calls++
	if d.err != nil {
		return client.Row{}, d.err
	}
	if d.domains[domain] {
		return client.Row{ID: uuid.New(), Domain: domain}, nil
	}
	return client.Row{}, pgx.ErrNoRows
}

func TestCheckerAllowed(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		production bool
		domains    map[string]bool
		want       bool
	}{
		{"absent origin", "", false, nil, false},
		{"operator apex", "https://datalinc.io", true, nil, true},
		{"operator subdomain", "https://sub.datalinc.io", true, nil, true},
		{"operator lookalike", "https://notdatalinc.io", true, nil, false},
		{"localhost dev", "http://localhost:3000", false, nil, true},
		{"localhost prod unregistered", "http://localhost:3000", true, nil, false},
		{"localhost prod registered", "http://localhost:3000", true, map[string]bool{"localhost": true}, true},
		{"registered client", "https://acme.com", true, map[string]bool{"acme.com": true}, true},
		{"registered client with port", "https://acme.com:8443", true, map[string]bool{"acme.com": true}, true},
		{"unregistered client", "https://evil.com", true, map[string]bool{"acme.com": true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &stubDirectory{domains: tt.domains}
			c := NewChecker(dir, "datalinc.io", tt.production, discardLogger())
			if got := c.Allowed(context.Background(), tt.origin); got != tt.want {
				t.Errorf("Allowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestCheckerFailsClosed(t *testing.T) {
	dir := &stubDirectory{err: errors.New("connection refused")}
	c := NewChecker(dir, "datalinc.io", true, discardLogger())

	if c.Allowed(context.Background(), "https://acme.com") {
		t.Error("lookup error should reject the origin")
	}
}

func TestCheckerOperatorSkipsLookup(t *testing.T) {
	dir := &stubDirectory{}
	c := NewChecker(dir, "datalinc.io", true, discardLogger())

	if !c.Allowed(context.Background(), "https://forms.datalinc.io") {
		t.Fatal("operator subdomain should be allowed")
	}
	if dir.calls != 0 {
		t.Errorf("operator origin hit the database %d times", dir.calls)
	}
}

func newTestHandler(dir ClientDirectory, production bool) *Handler {
	checker := NewChecker(dir, "datalinc.io", production, discardLogger())
	limiter := NewLimiter(nil, 30, 0, discardLogger())
	return NewHandler(checker, nil, limiter, discardLogger())
}

func TestPreflight(t *testing.T) {
	h := newTestHandler(&stubDirectory{domains: map[string]bool{"acme.com": true}}, true)

	tests := []struct {
		name       string
		origin     string
		wantStatus int
	}{
		{"allowed origin", "https://acme.com", 204},
		{"operator subdomain", "https://sub.datalinc.io", 204},
		{"disallowed origin", "https://evil.com", 403},
		{"no origin", "", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("OPTIONS", "/submit", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == 204 {
				if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.origin {
					t.Errorf("allow-origin = %q, want %q", got, tt.origin)
				}
				if got := rec.Header().Get("Access-Control-Allow-Methods"); got != corsMethods {
					t.Errorf("allow-methods = %q", got)
				}
				if rec.Header().Get("Access-Control-Max-Age") != corsMaxAge {
					t.Error("preflight missing max-age")
				}
			}
		})
	}
}

func TestSubmitRejectsBadPayload(t *testing.T) {
	h := newTestHandler(&stubDirectory{domains: map[string]bool{"acme.com": true}}, true)

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{"name":"Jo"}`},
		{"short message", `{"name":"Jo Lee","email":"jo@x.com","message":"hi","clientId":"` + uuid.NewString() + `","formType":"quote"}`},
		{"bad email", `{"name":"Jo Lee","email":"nope","message":"please send a quote","clientId":"` + uuid.NewString() + `","formType":"quote"}`},
		{"bad client id", `{"name":"Jo Lee","email":"jo@x.com","message":"please send a quote","clientId":"123","formType":"quote"}`},
		{"unknown form type", `{"name":"Jo Lee","email":"jo@x.com","message":"please send a quote","clientId":"` + uuid.NewString() + `","formType":"newsletter"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/submit", strings.NewReader(tt.body))
			req.Header.Set("Origin", "https://acme.com")
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != 400 {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSubmitRejectsDisallowedOrigin(t *testing.T) {
	h := newTestHandler(&stubDirectory{}, true)

	req := httptest.NewRequest("POST", "/submit", strings.NewReader(`{}`))
	req.Header.Set("Origin", "https://evil.com")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != 403 {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRenderEmailBody(t *testing.T) {
	id := uuid.New()
	company := "Acme <Corp>"
	req := SubmitRequest{
		Name:     "Jo Lee",
		Email:    "jo@x.com",
		Message:  "Please send a quote for 10 units",
		Company:  &company,
		FormType: "quote",
		Metadata: map[string]any{"budget": "10k", "units": 10},
	}

	body := renderEmailBody(req, id, nil)
	for _, want := range []string{"Jo Lee", "jo@x.com", "Acme &lt;Corp&gt;", "budget: 10k", "units: 10", id.String()} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}

	tmpl := "<p>{{name}} ({{email}}) says: {{message}} [{{submissionId}}]</p>"
	body = renderEmailBody(req, id, &tmpl)
	if !strings.Contains(body, "Jo Lee (jo@x.com) says: Please send a quote for 10 units") {
		t.Errorf("template not substituted:\n%s", body)
	}
	if !strings.Contains(body, id.String()) {
		t.Error("template missing submission id")
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("quote"); got != "Quote" {
		t.Errorf("titleCase(quote) = %q", got)
	}
	if got := titleCase(""); got != "" {
		t.Errorf("titleCase empty = %q", got)
	}
}
