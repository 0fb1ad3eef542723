package publishers

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/tito-trading/account-probe/internal/domain"
)

// Event is the account snapshot as published downstream.
type Event struct {
	Endpoint           string    `json:"endpoint"`
	StatusCode         int       `json:"status_code"`
	PreviousStatusCode int       `json:"previous_status_code,omitempty"`
	StatusChanged      bool      `json:"status_changed"`
	Body               string    `json:"body"`
	RequestedAt        time.Time `json:"requested_at"`
	PublishedAt        time.Time `json:"published_at"`
}

// NewEvent builds the event for snap. prev is the last recorded snapshot, if any;
// without one the status counts as unchanged.
func NewEvent(snap domain.Snapshot, prev *domain.Snapshot) Event {
	evt := Event{
		Endpoint:    snap.Endpoint,
		StatusCode:  snap.StatusCode,
		Body:        snap.Body,
		RequestedAt: snap.RequestedAt,
		PublishedAt: time.Now().UTC(),
	}
	if prev != nil {
		evt.PreviousStatusCode = prev.StatusCode
		evt.StatusChanged = prev.StatusCode != snap.StatusCode
	}
	return evt
}

// Key identifies one account request across sinks and redeliveries.
func (e Event) Key() string {
	sum := sha256.Sum256([]byte(e.Endpoint + "|" + strconv.FormatInt(e.RequestedAt.UnixNano(), 10)))
	return hex.EncodeToString(sum[:16])
}

// GroupKey orders events of one account endpoint on FIFO and ordered sinks.
func (e Event) GroupKey() string {
	if e.Endpoint == "" {
		return "account"
	}
	return e.Endpoint
}

// Attributes are the routing fields every sink attaches next to the JSON body.
func (e Event) Attributes() map[string]string {
	attrs := map[string]string{
		"status_code":    strconv.Itoa(e.StatusCode),
		"status_changed": strconv.FormatBool(e.StatusChanged),
		"event_key":      e.Key(),
	}
	if !e.RequestedAt.IsZero() {
		attrs["requested_at"] = e.RequestedAt.UTC().Format(time.RFC3339Nano)
	}
	return attrs
}
