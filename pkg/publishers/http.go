package publishers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tito-trading/account-probe/pkg/httpclient"
)

// Webhook headers set on every delivery. Configured headers cannot override them.
const (
	HeaderAccountStatus  = "X-Account-Status"
	HeaderStatusChanged  = "X-Account-Status-Changed"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// webhookPublisher posts the account event as JSON to a configured endpoint.
type webhookPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	return &webhookPublisher{
		id:      cfg.ID,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeHTTP }

func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeaders(w.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderAccountStatus, strconv.Itoa(evt.StatusCode)).
		SetHeader(HeaderStatusChanged, strconv.FormatBool(evt.StatusChanged)).
		SetHeader(HeaderIdempotencyKey, evt.Key()).
		SetBody(evt).
		Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded %d: %s", resp.StatusCode(), bodySnippet(resp.Body()))
	}
	w.log.DebugObj("webhook delivered account event", "publisher_http_delivery", map[string]any{
		"publisher_id":   w.id,
		"status_code":    resp.StatusCode(),
		"account_status": evt.StatusCode,
	})
	return nil
}

func bodySnippet(body []byte) string {
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
