package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// Delivery is the outcome of publishing one event to one sink.
type Delivery struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Err  error  `json:"-"`
}

// Fanout delivers each account event to every configured sink concurrently.
type Fanout struct {
	publishers []Publisher
}

// NewFanout drops nil entries and keeps the configured order.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			cp = append(cp, p)
		}
	}
	return &Fanout{publishers: cp}
}

// Publish sends evt to all sinks and waits for each to finish. Deliveries are
// returned in configured order; the error joins every failed delivery.
func (f *Fanout) Publish(ctx context.Context, evt Event) ([]Delivery, error) {
	if f == nil || len(f.publishers) == 0 {
		return nil, nil
	}

	out := make([]Delivery, len(f.publishers))
	// Per-sink errors land in out; the group itself never fails.
	var g errgroup.Group
	for i, p := range f.publishers {
		out[i] = Delivery{ID: p.ID(), Type: p.Type()}
		g.Go(func() error {
			out[i].Err = p.Publish(ctx, evt)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, d := range out {
		if d.Err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", d.Type, d.ID, d.Err))
		}
	}
	return out, errors.Join(errs...)
}

// Delivered lists the IDs of successful deliveries.
func Delivered(ds []Delivery) []string {
	var ids []string
	for _, d := range ds {
		if d.Err == nil {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases publishers that hold client connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.publishers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", p.Type(), p.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
