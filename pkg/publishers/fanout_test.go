package publishers

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func TestFanoutPublishReportsEveryDelivery(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: "http"}
	bad := &stubPublisher{id: "bad", typ: "sqs", err: errors.New("failed")}
	fanout := NewFanout([]Publisher{ok, nil, bad})

	if fanout.Size() != 2 {
		t.Fatalf("expected nil publishers dropped, size %d", fanout.Size())
	}
	deliveries, err := fanout.Publish(context.Background(), Event{})
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if len(deliveries) != 2 || deliveries[0].ID != "ok" || deliveries[1].ID != "bad" {
		t.Fatalf("deliveries out of configured order: %+v", deliveries)
	}
	if deliveries[0].Err != nil || deliveries[1].Err == nil {
		t.Fatalf("unexpected delivery errors: %+v", deliveries)
	}
	if got := Delivered(deliveries); len(got) != 1 || got[0] != "ok" {
		t.Fatalf("Delivered = %v", got)
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("every publisher should be called once: ok=%d bad=%d", ok.calls, bad.calls)
	}
}

func TestFanoutCloseClosesPublishers(t *testing.T) {
	p := &stubPublisher{id: "p", typ: "pubsub"}
	if err := NewFanout([]Publisher{p}).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !p.closed {
		t.Fatalf("publisher not closed")
	}
	var nilFanout *Fanout
	if ds, err := nilFanout.Publish(context.Background(), Event{}); ds != nil || err != nil {
		t.Fatalf("nil fanout should be a no-op, got %v %v", ds, err)
	}
}
