// Package probe performs the single authenticated account request.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tito-trading/account-probe/internal/config"
	"github.com/tito-trading/account-probe/internal/domain"
	"github.com/tito-trading/account-probe/internal/logger"
	"github.com/tito-trading/account-probe/pkg/httpclient"
)

var (
	// ErrMissingCredential means a credential variable was absent or empty.
	ErrMissingCredential = errors.New("missing credential")
	// ErrNetwork means the request could not be sent or the exchange did not complete.
	ErrNetwork = errors.New("account request failed")
	// ErrBodyDecode means the response body is not valid UTF-8 text.
	ErrBodyDecode = errors.New("response body is not valid text")
)

// Credentials are the two opaque values sent as request headers.
type Credentials struct {
	KeyID     string
	SecretKey string
}

// NewCredentials validates presence of both values.
func NewCredentials(keyID, secretKey string) (Credentials, error) {
	if keyID == "" {
		return Credentials{}, fmt.Errorf("%w: %s", ErrMissingCredential, config.EnvKeyID)
	}
	if secretKey == "" {
		return Credentials{}, fmt.Errorf("%w: %s", ErrMissingCredential, config.EnvSecretKey)
	}
	return Credentials{KeyID: keyID, SecretKey: secretKey}, nil
}

// Headers returns the authentication headers for the account endpoint.
func (c Credentials) Headers() map[string]string {
	return map[string]string{
		config.EnvKeyID:     c.KeyID,
		config.EnvSecretKey: c.SecretKey,
	}
}

// Probe issues one GET against the account endpoint.
type Probe struct {
	client   httpclient.Client
	endpoint string
	creds    Credentials
	log      logger.Logger
	now      func() time.Time
}

// New builds a Probe. A nil log discards output.
func New(client httpclient.Client, endpoint string, creds Credentials, log logger.Logger) *Probe {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Probe{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		creds:    creds,
		log:      log,
		now:      time.Now,
	}
}

// Probe sends the request and returns the response as received. Non-2xx statuses
// are not errors: the status is part of the snapshot.
func (p *Probe) Probe(ctx context.Context) (domain.Snapshot, error) {
	if p == nil || p.client == nil {
		return domain.Snapshot{}, fmt.Errorf("probe is not initialized")
	}
	if _, err := NewCredentials(p.creds.KeyID, p.creds.SecretKey); err != nil {
		return domain.Snapshot{}, err
	}

	start := p.now()
	p.log.DebugObj("account request started", "probe_request", map[string]any{
		"endpoint": p.endpoint,
	})

	resp, err := p.client.Get(ctx, p.endpoint, p.creds.Headers())
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: GET %s: %w", ErrNetwork, p.endpoint, err)
	}

	raw := resp.Body()
	if !utf8.Valid(raw) {
		return domain.Snapshot{}, fmt.Errorf("%w: %d bytes from %s", ErrBodyDecode, len(raw), p.endpoint)
	}

	snap := domain.Snapshot{
		Endpoint:    p.endpoint,
		StatusCode:  resp.StatusCode(),
		Header:      resp.Header().Clone(),
		Body:        string(raw),
		RequestedAt: start.UTC(),
	}
	p.log.InfoObj("account request completed", "probe_result", map[string]any{
		"endpoint":    p.endpoint,
		"status_code": snap.StatusCode,
		"body_bytes":  len(raw),
		"elapsed_ms":  p.now().Sub(start).Milliseconds(),
	})
	return snap, nil
}
