package publishers

import (
	"testing"
	"time"

	"github.com/tito-trading/account-probe/internal/domain"
)

func TestNewEventComparesWithPreviousSnapshot(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	snap := domain.Snapshot{Endpoint: "https://paper-api.alpaca.markets/v2/account", StatusCode: 401, Body: "denied", RequestedAt: at}

	first := NewEvent(snap, nil)
	if first.StatusChanged || first.PreviousStatusCode != 0 {
		t.Fatalf("first event should not report a change: %+v", first)
	}

	prev := snap
	prev.StatusCode = 200
	changed := NewEvent(snap, &prev)
	if !changed.StatusChanged || changed.PreviousStatusCode != 200 {
		t.Fatalf("expected change from 200, got %+v", changed)
	}
	if same := NewEvent(snap, &snap); same.StatusChanged {
		t.Fatalf("equal status reported as changed")
	}
}

func TestEventKeyIdentifiesRequest(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	a := Event{Endpoint: "https://a.example/v2/account", RequestedAt: at, PublishedAt: at}
	b := a
	b.PublishedAt = at.Add(time.Minute)
	if a.Key() != b.Key() {
		t.Fatalf("key must not depend on publish time")
	}
	c := a
	c.RequestedAt = at.Add(time.Nanosecond)
	if a.Key() == c.Key() {
		t.Fatalf("distinct requests share a key")
	}
	if got := a.Attributes()["event_key"]; got != a.Key() {
		t.Fatalf("event_key attribute = %q", got)
	}
	if got := a.Attributes()["requested_at"]; got != "2026-05-01T09:30:00Z" {
		t.Fatalf("requested_at attribute = %q", got)
	}
}
