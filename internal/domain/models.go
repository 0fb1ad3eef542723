package domain

import (
	"net/http"
	"time"
)

// Snapshot is the outcome of one account probe: the response exactly as received.
type Snapshot struct {
	Endpoint    string      `json:"endpoint"`
	StatusCode  int         `json:"status_code"`
	Header      http.Header `json:"header"`
	Body        string      `json:"body"`
	RequestedAt time.Time   `json:"requested_at"`
}
