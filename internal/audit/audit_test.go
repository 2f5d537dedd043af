package audit

import (
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/datalinc/formbridge/internal/auth"
	"github.com/google/uuid"
)

func TestLog_DropsWhenFull(t *testing.T) {
	logger := slog.Default()
	w := NewWriter(nil, logger)
	// Don't start the background goroutine; nothing drains the channel.

	// Fill the buffer.
	for i := 0; i < bufferSize; i++ {
		w.Log(Entry{Action: "test", Resource: "test"})
	}

	// The next log should be dropped (non-blocking).
	w.Log(Entry{Action: "dropped", Resource: "dropped"})

	// Verify buffer is full.
	if len(w.entries) != bufferSize {
		t.Errorf("buffer size = %d, want %d", len(w.entries), bufferSize)
	}
}

func TestLogFromRequest_ExtractsFields(t *testing.T) {
	logger := slog.Default()
	w := NewWriter(nil, logger)
	// Don't start; read from the channel directly.

	userID := uuid.New()
	r := httptest.NewRequest("DELETE", "/api/v1/clients/x", nil)
	r.Header.Set("User-Agent", "test-agent/1.0")
	r.Header.Set("X-Real-IP", "198.51.100.23")
	r = r.WithContext(auth.NewContext(r.Context(), &auth.Identity{UserID: userID}))

	resourceID := uuid.New()
	w.LogFromRequest(r, "delete", "client", resourceID, Detail(map[string]any{"name": "Acme"}))

	entry := <-w.entries

	if entry.Action != "delete" {
		t.Errorf("Action = %q, want %q", entry.Action, "delete")
	}
	if entry.Resource != "client" {
		t.Errorf("Resource = %q, want %q", entry.Resource, "client")
	}
	if !entry.UserID.Valid || uuid.UUID(entry.UserID.Bytes) != userID {
		t.Errorf("UserID = %v, want %v", entry.UserID, userID)
	}
	if entry.ResourceID != resourceID {
		t.Errorf("ResourceID = %v, want %v", entry.ResourceID, resourceID)
	}
	if entry.IPAddress == nil || *entry.IPAddress != "198.51.100.23" {
		t.Errorf("IPAddress = %v, want 198.51.100.23", entry.IPAddress)
	}
	if entry.UserAgent == nil || *entry.UserAgent != "test-agent/1.0" {
		t.Errorf("UserAgent = %v, want test-agent/1.0", entry.UserAgent)
	}
}
