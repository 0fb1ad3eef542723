package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/tito-trading/account-probe/internal/domain"
)

// Package storage keeps an optional local history of probe snapshots.

// Store persists probe snapshots.
type Store interface {
	Close() error
	SaveSnapshot(snap domain.Snapshot) error
	// RecentSnapshots returns up to limit unexpired snapshots, newest first.
	RecentSnapshots(limit int) ([]domain.Snapshot, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SnapshotTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSnapshotTTL     = 30 * 24 * time.Hour
	defaultCleanupInterval = 24 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// Enabled reports whether typ selects a persistent backend.
func Enabled(typ string) bool {
	switch strings.TrimSpace(strings.ToLower(typ)) {
	case "", "none", "disabled":
		return false
	default:
		return true
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                                   { return nil }
func (noopStore) SaveSnapshot(domain.Snapshot) error             { return nil }
func (noopStore) RecentSnapshots(int) ([]domain.Snapshot, error) { return nil, nil }
