package mailer

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestDisabledMailerIsNoop(t *testing.T) {
	m := New("", "no-reply@datalinc.io", "Datalinc", slog.New(slog.NewTextHandler(io.Discard, nil)))

	if m.IsEnabled() {
		t.Fatal("mailer with no API key should be disabled")
	}
	if err := m.Send(context.Background(), []string{"a@example.com"}, "hi", "<p>hi</p>"); err != nil {
		t.Fatalf("disabled Send returned error: %v", err)
	}
	if err := m.SendPasswordReset(context.Background(), "a@example.com", "https://example.com/reset"); err != nil {
		t.Fatalf("disabled SendPasswordReset returned error: %v", err)
	}
}

func TestEnabledMailer(t *testing.T) {
	m := New("SG.test-key", "no-reply@datalinc.io", "Datalinc", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if !m.IsEnabled() {
		t.Fatal("mailer with API key should be enabled")
	}
}
