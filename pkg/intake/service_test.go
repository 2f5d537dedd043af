package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/datalinc/formbridge/pkg/client"
	"github.com/datalinc/formbridge/pkg/formconfig"
	"github.com/datalinc/formbridge/pkg/opsnotify"
	"github.com/datalinc/formbridge/pkg/submission"
)

type stubClients struct {
	row client.Row
	err error
}

func (s *stubClients) Get(context.Context, uuid.UUID) (client.Row, error) {
	return s.row, s.err
}

type stubConfigs struct {
	row formconfig.Row
	err error
}

func (s *stubConfigs) GetActive(context.Context, uuid.UUID, string) (formconfig.Row, error) {
	return s.row, s.err
}

type stubSubmissions struct {
	id        uuid.UUID
	createErr error

	statusID  uuid.UUID
	statusSet string
}

func (s *stubSubmissions) Create(context.Context, submission.CreateParams) (uuid.UUID, error) {
	return s.id, s.createErr
}

func (s *stubSubmissions) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	s.statusID = id
	s.statusSet = status
	return nil
}

type stubMail struct {
	err  error
	sent int
	to   []string
}

func (m *stubMail) Send(_ context.Context, to []string, _, _ string) error {
	m.sent++
	m.to = to
	return m.err
}

type stubOps struct{ pinged int }

func (o *stubOps) PostNewSubmission(context.Context, opsnotify.SubmissionInfo) error {
	o.pinged++
	return nil
}

func validSubmitRequest(clientID uuid.UUID) SubmitRequest {
	return SubmitRequest{
		Name:     "Jo Lee",
		Email:    "jo@x.com",
		Message:  "Please send a quote for 10 units",
		ClientID: clientID.String(),
		FormType: "quote",
	}
}

// A failed notification email demotes the stored row to "pending" but the
// submission itself still succeeds.
func TestSubmitDemotesToPendingOnEmailFailure(t *testing.T) {
	clientID := uuid.New()
	subs := &stubSubmissions{id: uuid.New()}
	mail := &stubMail{err: errors.New("smtp down")}
	ops := &stubOps{}

	svc := NewService(
		&stubClients{row: client.Row{ID: clientID, Name: "Acme", Email: "owner@acme.com"}},
		&stubConfigs{err: pgx.ErrNoRows},
		subs, mail, ops, discardLogger(),
	)

	result, err := svc.Submit(context.Background(), validSubmitRequest(clientID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.ID != subs.id {
		t.Errorf("result.ID = %v, want %v", result.ID, subs.id)
	}
	if result.Message != formconfig.DefaultSuccessMessage {
		t.Errorf("result.Message = %q", result.Message)
	}

	if subs.statusSet != submission.StatusPending {
		t.Errorf("status after email failure = %q, want %q", subs.statusSet, submission.StatusPending)
	}
	if subs.statusID != subs.id {
		t.Errorf("demoted submission = %v, want %v", subs.statusID, subs.id)
	}

	// Missing config falls back to the client's own contact address.
	if len(mail.to) != 1 || mail.to[0] != "owner@acme.com" {
		t.Errorf("recipients = %v, want client email fallback", mail.to)
	}
	if ops.pinged != 1 {
		t.Errorf("ops pings = %d, want 1", ops.pinged)
	}
}

func TestSubmitLeavesStatusOnEmailSuccess(t *testing.T) {
	clientID := uuid.New()
	subs := &stubSubmissions{id: uuid.New()}
	mail := &stubMail{}
	tmpl := "<p>{{name}}</p>"

	svc := NewService(
		&stubClients{row: client.Row{ID: clientID, Name: "Acme", Email: "owner@acme.com"}},
		&stubConfigs{row: formconfig.Row{
			RecipientEmails: []string{"sales@acme.com", "ops@acme.com"},
			SuccessMessage:  "We got it!",
			EmailTemplate:   &tmpl,
		}},
		subs, mail, &stubOps{}, discardLogger(),
	)

	result, err := svc.Submit(context.Background(), validSubmitRequest(clientID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Message != "We got it!" {
		t.Errorf("result.Message = %q", result.Message)
	}
	if subs.statusSet != "" {
		t.Errorf("status changed to %q after successful email", subs.statusSet)
	}
	if len(mail.to) != 2 || mail.to[0] != "sales@acme.com" {
		t.Errorf("recipients = %v, want configured list", mail.to)
	}
}

func TestSubmitUnknownClient(t *testing.T) {
	svc := NewService(
		&stubClients{err: pgx.ErrNoRows},
		&stubConfigs{err: pgx.ErrNoRows},
		&stubSubmissions{}, &stubMail{}, &stubOps{}, discardLogger(),
	)

	_, err := svc.Submit(context.Background(), validSubmitRequest(uuid.New()))
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("err = %v, want ErrClientNotFound", err)
	}
}
