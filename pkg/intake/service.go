package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/datalinc/formbridge/internal/telemetry"
	"github.com/datalinc/formbridge/pkg/client"
	"github.com/datalinc/formbridge/pkg/formconfig"
	"github.com/datalinc/formbridge/pkg/opsnotify"
	"github.com/datalinc/formbridge/pkg/submission"
)

// ErrClientNotFound is returned when the submitted clientId does not match
// any client record.
var ErrClientNotFound = errors.New("client not found")

// SubmitRequest is the public JSON payload for a form submission. Field
// names are camelCase to match the browser SDK.
type SubmitRequest struct {
	Name     string         `json:"name" validate:"required,min=2"`
	Email    string         `json:"email" validate:"required,email"`
	Message  string         `json:"message" validate:"required,min=10"`
	Company  *string        `json:"company"`
	ClientID string         `json:"clientId" validate:"required,uuid"`
	FormType string         `json:"formType" validate:"required,oneof=contact quote support other"`
	Metadata map[string]any `json:"metadata"`
}

// Result is returned to the submitter on success.
type Result struct {
	Message string
	ID      uuid.UUID
}

// ClientSource resolves the client a submission belongs to.
type ClientSource interface {
	Get(ctx context.Context, id uuid.UUID) (client.Row, error)
}

// ConfigSource resolves the active form config for a client and category.
type ConfigSource interface {
	GetActive(ctx context.Context, clientID uuid.UUID, formType string) (formconfig.Row, error)
}

// SubmissionSink persists submissions and status changes.
type SubmissionSink interface {
	Create(ctx context.Context, p submission.CreateParams) (uuid.UUID, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// MailSender delivers the operator notification email.
type MailSender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// OpsNotifier posts the internal new-submission ping.
type OpsNotifier interface {
	PostNewSubmission(ctx context.Context, info opsnotify.SubmissionInfo) error
}

// Service runs the submission pipeline: resolve client, resolve config,
// persist, notify. It holds the service-level database capability since
// public callers have no session of their own.
type Service struct {
	clients     ClientSource
	configs     ConfigSource
	submissions SubmissionSink
	mail        MailSender
	ops         OpsNotifier
	logger      *slog.Logger
}

// NewService creates an intake Service.
func NewService(clients ClientSource, configs ConfigSource, submissions SubmissionSink, mail MailSender, ops OpsNotifier, logger *slog.Logger) *Service {
	return &Service{
		clients:     clients,
		configs:     configs,
		submissions: submissions,
		mail:        mail,
		ops:         ops,
		logger:      logger,
	}
}

// Submit runs the pipeline for a validated request. The steps run strictly
// in order: resolve client, resolve config, insert, notify, and on a failed
// notification demote the stored row to "pending". A notification failure
// never fails the submission.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Result, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		// Validation guarantees UUID shape; treat a parse failure as unknown.
		return Result{}, ErrClientNotFound
	}

	cl, err := s.clients.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, ErrClientNotFound
		}
		return Result{}, fmt.Errorf("resolving client: %w", err)
	}

	// Missing or broken config is a soft failure: fall back to notifying the
	// client's own contact address with the default message.
	recipients := []string{cl.Email}
	successMsg := formconfig.DefaultSuccessMessage
	var emailTemplate *string

	cfg, err := s.configs.GetActive(ctx, cl.ID, req.FormType)
	switch {
	case err == nil:
		recipients = cfg.RecipientEmails
		emailTemplate = cfg.EmailTemplate
		if cfg.SuccessMessage != "" {
			successMsg = cfg.SuccessMessage
		}
	case errors.Is(err, pgx.ErrNoRows):
		// No active config for this category.
	default:
		s.logger.Warn("form config lookup failed, using fallback recipients",
			"client_id", cl.ID, "form_type", req.FormType, "error", err)
	}

	var metadata json.RawMessage
	if len(req.Metadata) > 0 {
		metadata, err = json.Marshal(req.Metadata)
		if err != nil {
			return Result{}, fmt.Errorf("encoding metadata: %w", err)
		}
	}

	id, err := s.submissions.Create(ctx, submission.CreateParams{
		ClientID:    cl.ID,
		FormType:    req.FormType,
		SenderName:  req.Name,
		SenderEmail: req.Email,
		Company:     req.Company,
		Message:     req.Message,
		Metadata:    metadata,
	})
	if err != nil {
		return Result{}, fmt.Errorf("storing submission: %w", err)
	}
	telemetry.SubmissionsReceivedTotal.Inc()

	s.notify(ctx, cl, req, id, recipients, emailTemplate)

	return Result{Message: successMsg, ID: id}, nil
}

// notify sends the operator email and the Slack ops ping. The submission is
// already durable; on email failure the row is demoted to "pending" and the
// error is absorbed.
func (s *Service) notify(ctx context.Context, cl client.Row, req SubmitRequest, id uuid.UUID, recipients []string, template *string) {
	subject := fmt.Sprintf("New %s Form Submission from %s", titleCase(req.FormType), req.Name)
	body := renderEmailBody(req, id, template)

	if err := s.mail.Send(ctx, recipients, subject, body); err != nil {
		telemetry.NotificationsSentTotal.WithLabelValues("email", "error").Inc()
		s.logger.Error("submission notification failed, marking pending",
			"submission_id", id, "client_id", cl.ID, "error", err)

		if err := s.submissions.SetStatus(ctx, id, submission.StatusPending); err != nil {
			s.logger.Error("demoting submission to pending failed", "submission_id", id, "error", err)
		}
	} else {
		telemetry.NotificationsSentTotal.WithLabelValues("email", "ok").Inc()
	}

	if err := s.ops.PostNewSubmission(ctx, opsnotify.SubmissionInfo{
		ID:          id.String(),
		ClientName:  cl.Name,
		FormType:    req.FormType,
		SenderName:  req.Name,
		SenderEmail: req.Email,
	}); err != nil {
		s.logger.Warn("slack submission ping failed", "submission_id", id, "error", err)
	}
}

// renderEmailBody builds the notification HTML. A client-supplied template
// replaces the default layout; its placeholders are substituted with the
// escaped sender fields.
func renderEmailBody(req SubmitRequest, id uuid.UUID, template *string) string {
	company := ""
	if req.Company != nil {
		company = *req.Company
	}

	if template != nil && *template != "" {
		return strings.NewReplacer(
			"{{name}}", html.EscapeString(req.Name),
			"{{email}}", html.EscapeString(req.Email),
			"{{company}}", html.EscapeString(company),
			"{{message}}", html.EscapeString(req.Message),
			"{{formType}}", html.EscapeString(req.FormType),
			"{{submissionId}}", id.String(),
		).Replace(*template)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>New %s form submission</h2>", html.EscapeString(req.FormType))
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>", html.EscapeString(req.Name))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>", html.EscapeString(req.Email))
	if company != "" {
		fmt.Fprintf(&b, "<p><strong>Company:</strong> %s</p>", html.EscapeString(company))
	}
	fmt.Fprintf(&b, "<p><strong>Message:</strong></p><blockquote>%s</blockquote>", html.EscapeString(req.Message))

	if len(req.Metadata) > 0 {
		keys := make([]string, 0, len(req.Metadata))
		for k := range req.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("<p><strong>Additional fields:</strong></p><ul>")
		for _, k := range keys {
			fmt.Fprintf(&b, "<li>%s: %s</li>",
				html.EscapeString(k), html.EscapeString(fmt.Sprint(req.Metadata[k])))
		}
		b.WriteString("</ul>")
	}

	fmt.Fprintf(&b, "<p><small>Submission ID: %s</small></p>", id.String())
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
