package httpserver

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age" validate:"omitempty,gte=0"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Jo","email":"jo@x.com"}`, false},
		{"empty body", ``, true},
		{"invalid json", `{"name":`, true},
		{"unknown field", `{"name":"Jo","email":"jo@x.com","extra":1}`, true},
		{"trailing data", `{"name":"Jo","email":"jo@x.com"}{"again":true}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var dst samplePayload
			err := Decode(r, &dst)
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsAllViolations(t *testing.T) {
	errs := Validate(samplePayload{Name: "J", Email: "nope", Age: -1})
	if len(errs) != 3 {
		t.Fatalf("got %d errors, want 3: %v", len(errs), errs)
	}

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"name", "email", "age"} {
		if !fields[want] {
			t.Errorf("missing violation for field %q in %v", want, errs)
		}
	}
}

func TestDecodeAndValidateWrites400(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Jo"}`))
	w := httptest.NewRecorder()

	var dst samplePayload
	if DecodeAndValidate(w, r, &dst) {
		t.Fatal("expected validation failure")
	}
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error != "validation_error" || len(resp.Details) == 0 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Details[0].Field != "email" {
		t.Errorf("field = %q, want email", resp.Details[0].Field)
	}
}

func TestDecodeAndValidateOK(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Jo","email":"jo@x.com"}`))
	w := httptest.NewRecorder()

	var dst samplePayload
	if !DecodeAndValidate(w, r, &dst) {
		t.Fatalf("unexpected failure: %s", w.Body.String())
	}
	if dst.Name != "Jo" || dst.Email != "jo@x.com" {
		t.Errorf("dst = %+v", dst)
	}
}
