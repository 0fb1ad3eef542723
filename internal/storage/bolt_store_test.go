package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/tito-trading/account-probe/internal/domain"
	bolt "go.etcd.io/bbolt"
)

func openTestStore(t *testing.T, opts Options) *boltStore {
	t.Helper()
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "probes.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreReturnsNewestFirst(t *testing.T) {
	store := openTestStore(t, Options{})
	base := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

	for i, status := range []int{200, 401, 200} {
		snap := domain.Snapshot{
			Endpoint:    "https://paper-api.alpaca.markets/v2/account",
			StatusCode:  status,
			Header:      http.Header{"Content-Type": {"application/json"}},
			Body:        fmt.Sprintf(`{"n":%d}`, i),
			RequestedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveSnapshot(snap); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	got, err := store.RecentSnapshots(2)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].Body != `{"n":2}` || got[1].Body != `{"n":1}` || got[1].StatusCode != 401 {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[0].Header.Get("Content-Type") != "application/json" {
		t.Fatalf("headers not persisted: %v", got[0].Header)
	}
}

func TestBoltStoreKeepsSnapshotsWithSameTimestamp(t *testing.T) {
	store := openTestStore(t, Options{})
	at := time.Now().UTC()

	for _, body := range []string{"first", "second"} {
		if err := store.SaveSnapshot(domain.Snapshot{Body: body, RequestedAt: at}); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	got, err := store.RecentSnapshots(10)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(got) != 2 || got[0].Body != "second" {
		t.Fatalf("expected both snapshots kept, got %+v", got)
	}
}

func TestBoltStoreExpiresSnapshots(t *testing.T) {
	store := openTestStore(t, Options{SnapshotTTL: time.Hour, CleanupInterval: time.Hour})
	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.SaveSnapshot(domain.Snapshot{Body: "old"}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	// Fast-forward past the TTL and the cleanup cadence.
	now = now.Add(2 * time.Hour)
	got, err := store.RecentSnapshots(10)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected expired snapshot hidden, got %+v", got)
	}

	if err := store.SaveSnapshot(domain.Snapshot{Body: "fresh"}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, err = store.RecentSnapshots(10)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(got) != 1 || got[0].Body != "fresh" {
		t.Fatalf("expected only fresh snapshot, got %+v", got)
	}

	var keys int
	if err := store.db.View(func(tx *bolt.Tx) error {
		keys = tx.Bucket([]byte(snapshotBucket)).Stats().KeyN
		return nil
	}); err != nil {
		t.Fatalf("count keys: %v", err)
	}
	if keys != 1 {
		t.Fatalf("expected cleanup to remove expired key, %d keys remain", keys)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SaveSnapshot(domain.Snapshot{}); err != nil {
		t.Fatalf("noop store SaveSnapshot: %v", err)
	}
	if Enabled("none") || !Enabled("bbolt") {
		t.Fatalf("Enabled mismatch")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}
