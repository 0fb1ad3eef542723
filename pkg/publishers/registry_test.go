package publishers

import (
	"context"
	"testing"
)

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: " hook ", Type: "HTTP", HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 || pubs[0].ID() != "hook" || pubs[0].Type() != TypeHTTP {
		t.Fatalf("unexpected publishers %#v", pubs)
	}
}

func TestBuildAllRejectsRepeatedTarget(t *testing.T) {
	cfg := PublisherConfig{ID: "http:https://example.com", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}}
	if _, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{cfg, cfg}, nil); err == nil {
		t.Fatalf("expected error for a target listed twice")
	}
}

func TestBuildAllUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{{ID: "k", Type: "kafka"}}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}

func TestSanitizeAppliesHTTPDefaults(t *testing.T) {
	cfg := Sanitize(PublisherConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{
			URL:     " https://example.com ",
			Method:  "put",
			Headers: map[string]string{" X-A ": " 1 ", "X-Empty": " "},
		},
	})
	if cfg.HTTP.URL != "https://example.com" || cfg.HTTP.Method != "PUT" {
		t.Fatalf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("TimeoutSeconds = %d", cfg.HTTP.TimeoutSeconds)
	}
	if len(cfg.HTTP.Headers) != 1 || cfg.HTTP.Headers["X-A"] != "1" {
		t.Fatalf("unexpected headers %v", cfg.HTTP.Headers)
	}
}

func TestValidateRejectsIncompleteConfigs(t *testing.T) {
	cases := []PublisherConfig{
		{Type: TypeHTTP},
		{ID: "h1", Type: TypeHTTP},
		{ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://q"}},
		{ID: "t1", Type: TypeSNS, SNS: &SNSPublisherConfig{AWS: AWSConfig{Region: "us-east-1"}}},
		{ID: "g1", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}},
	}
	for _, cfg := range cases {
		if err := Validate(cfg); err == nil {
			t.Fatalf("expected validation error for %+v", cfg)
		}
	}
}
