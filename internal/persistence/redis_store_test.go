package persistence

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/petrijr/advisa/pkg/api"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewRedisStore(client, "advisa-test:"), mr
}

func TestRedisStore_SaveAndLatest(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	state := sampleState()
	cp := &api.Checkpoint{
		ThreadID:    "t1",
		Seq:         1,
		State:       state,
		PendingStep: "metrics",
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
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
}

func TestRedisStore_LatestNotFound(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, err := store.Latest(context.Background(), "missing")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestRedisStore_SequenceConflict(t *testing.T) {
	store, _ := newTestRedisStore(t)
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

func TestRedisStore_Threads(t *testing.T) {
	store, _ := newTestRedisStore(t)
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
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Fatalf("unexpected thread list: %v", ids)
	}
}

func TestRedisStore_LeaseAcquireReleaseExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	acq, err := store.TryAcquireLease(ctx, "t1", "owner1", time.Second)
	if err != nil || !acq {
		t.Fatalf("TryAcquireLease owner1: acq=%v err=%v", acq, err)
	}

	acq2, err := store.TryAcquireLease(ctx, "t1", "owner2", time.Second)
	if err != nil {
		t.Fatalf("TryAcquireLease owner2: %v", err)
	}
	if acq2 {
		t.Fatalf("expected not acquired while lease active")
	}

	// Re-entrant for the same owner.
	again, err := store.TryAcquireLease(ctx, "t1", "owner1", time.Second)
	if err != nil || !again {
		t.Fatalf("re-entrant TryAcquireLease: acq=%v err=%v", again, err)
	}

	if err := store.RenewLease(ctx, "t1", "owner2", time.Second); !errors.Is(err, ErrLeaseNotHeld) {
		t.Fatalf("expected ErrLeaseNotHeld for owner2, got %v", err)
	}

	if err := store.ReleaseLease(ctx, "t1", "owner1"); err != nil {
		t.Fatalf("ReleaseLease: %v", err)
	}

	acq3, err := store.TryAcquireLease(ctx, "t1", "owner2", time.Second)
	if err != nil || !acq3 {
		t.Fatalf("TryAcquireLease owner2 after release: acq=%v err=%v", acq3, err)
	}

	// TTL expiry frees the lease for a new owner.
	mr.FastForward(2 * time.Second)
	acq4, err := store.TryAcquireLease(ctx, "t1", "owner1", time.Second)
	if err != nil || !acq4 {
		t.Fatalf("TryAcquireLease after expiry: acq=%v err=%v", acq4, err)
	}
}
