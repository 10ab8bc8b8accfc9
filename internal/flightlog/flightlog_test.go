package flightlog

import (
	"context"
	"testing"
	"time"
)

func TestMemoryWriter(t *testing.T) {
	w := NewMemoryWriter()
	defer w.Close()

	ev := Event{
		PilotID:   "demo_user",
		EventType: "flight_completed",
		Data:      map[string]any{"airport": "KDEN"},
		LoggedAt:  time.Now(),
	}
	if err := w.Log(context.Background(), ev); err != nil {
		t.Fatalf("Log: %v", err)
	}

	events := w.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].PilotID != "demo_user" {
		t.Errorf("PilotID = %q, want demo_user", events[0].PilotID)
	}
	if events[0].EventType != "flight_completed" {
		t.Errorf("EventType = %q, want flight_completed", events[0].EventType)
	}

	// Snapshot isolation: mutating the returned slice must not affect the writer.
	events[0].PilotID = "other"
	if w.Events()[0].PilotID != "demo_user" {
		t.Error("Events snapshot leaked internal state")
	}
}

func TestOpenPostgresRejectsBadDSN(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), "not a dsn"); err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}
