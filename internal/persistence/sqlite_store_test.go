package persistence

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petrijr/advisa/pkg/api"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	return store
}

func TestSQLiteStore_SaveAndLatest(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	state := sampleState()
	cp := &api.Checkpoint{
		ThreadID:    "t1",
		Seq:         1,
		State:       state,
		PendingStep: "metrics",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Latest(ctx, "t1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got.Seq != 1 || got.PendingStep != "metrics" {
		t.Fatalf("unexpected checkpoint: %+v", got)
	}
	if !reflect.DeepEqual(got.State, state) {
		t.Fatalf("state did not round-trip:\nsaved:  %+v\nloaded: %+v", state, got.State)
	}
	if !got.CreatedAt.Equal(cp.CreatedAt) {
		t.Fatalf("timestamp did not round-trip: saved %v loaded %v", cp.CreatedAt, got.CreatedAt)
	}
}

func TestSQLiteStore_LatestNotFound(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.Latest(context.Background(), "missing")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestSQLiteStore_SequenceConflict(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	save := func(seq int64) error {
		return store.Save(ctx, &api.Checkpoint{
			ThreadID:    "t1",
			Seq:         seq,
			PendingStep: "router",
			CreatedAt:   time.Now(),
		})
	}

	if err := save(1); err != nil {
		t.Fatalf("Save seq 1 failed: %v", err)
	}
	if err := save(1); !errors.Is(err, ErrSequenceConflict) {
		t.Fatalf("expected ErrSequenceConflict for duplicate, got %v", err)
	}
	if err := save(3); !errors.Is(err, ErrSequenceConflict) {
		t.Fatalf("expected ErrSequenceConflict for gap, got %v", err)
	}
	if err := save(2); err != nil {
		t.Fatalf("Save seq 2 failed: %v", err)
	}
}

func TestSQLiteStore_LatestServesHighestSeq(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	for seq := int64(1); seq <= 4; seq++ {
		cp := &api.Checkpoint{
			ThreadID:    "t1",
			Seq:         seq,
			PendingStep: "decider",
			CreatedAt:   time.Now(),
		}
		if err := store.Save(ctx, cp); err != nil {
			t.Fatalf("Save seq %d failed: %v", seq, err)
		}
	}

	got, err := store.Latest(ctx, "t1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got.Seq != 4 {
		t.Fatalf("expected latest seq 4, got %d", got.Seq)
	}
}

func TestSQLiteStore_Threads(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"beta", "alpha"} {
		cp := &api.Checkpoint{ThreadID: id, Seq: 1, PendingStep: "router", CreatedAt: time.Now()}
		if err := store.Save(ctx, cp); err != nil {
			t.Fatalf("Save %s failed: %v", id, err)
		}
	}

	ids, err := store.Threads(ctx)
	if err != nil {
		t.Fatalf("Threads failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Fatalf("unexpected thread list: %v", ids)
	}
}
