// Package opsnotify posts internal operational pings to Slack. Without a bot
// token the notifier is a noop, so Slack is never required to run the service.
package opsnotify

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"

	"github.com/datalinc/formbridge/internal/telemetry"
)

// Notifier sends messages to the ops Slack channel.
type Notifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier creates a Slack Notifier. If botToken is empty, the notifier
// will be a noop (logging only).
func NewNotifier(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// IsEnabled returns true if the notifier has a valid Slack client.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// SubmissionInfo carries the fields shown in a new-submission ping.
type SubmissionInfo struct {
	ID          string
	ClientName  string
	FormType    string
	SenderName  string
	SenderEmail string
}

// PostNewSubmission sends a new-submission ping to the configured channel.
func (n *Notifier) PostNewSubmission(ctx context.Context, info SubmissionInfo) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping submission ping",
			"submission_id", info.ID,
			"client", info.ClientName,
		)
		return nil
	}

	text := fmt.Sprintf(":inbox_tray: New %s submission for *%s* from %s <%s> (id `%s`)",
		info.FormType, info.ClientName, info.SenderName, info.SenderEmail, info.ID)

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		goslack.MsgOptionText(text, false))
	if err != nil {
		telemetry.NotificationsSentTotal.WithLabelValues("slack", "error").Inc()
		return fmt.Errorf("posting submission ping to slack: %w", err)
	}

	telemetry.NotificationsSentTotal.WithLabelValues("slack", "ok").Inc()
	return nil
}
