package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/advisa/pkg/api"
)

var (
	// ErrThreadNotFound is returned by Latest when a thread has no
	// checkpoint yet. It is the normal "new thread" signal, not a failure.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrSequenceConflict is returned by Save when the checkpoint's Seq is
	// not exactly one past the latest persisted value for the thread.
	// It indicates two runs raced for the same thread.
	ErrSequenceConflict = errors.New("checkpoint sequence conflict")

	// ErrLeaseNotHeld is returned by RenewLease when the caller does not
	// hold an active lease on the thread.
	ErrLeaseNotHeld = errors.New("lease not held")
)

// Store is durable checkpoint storage keyed by thread ID.
//
// Save must be atomic: a crash mid-write must never leave a checkpoint
// whose state does not correspond to its recorded pending step. Prior
// checkpoints are superseded, not deleted; Latest always serves the
// highest sequence number.
//
// The lease methods provide cross-process mutual exclusion per thread.
// A lease owned by the same owner is re-entrant.
type Store interface {
	Save(ctx context.Context, cp *api.Checkpoint) error
	Latest(ctx context.Context, threadID string) (*api.Checkpoint, error)
	Threads(ctx context.Context) ([]string, error)

	// TryAcquireLease attempts to acquire (or re-acquire) a lease on a
	// thread. If the thread is currently leased by another owner and the
	// lease has not expired, it returns acquired=false, err=nil.
	TryAcquireLease(ctx context.Context, threadID, owner string, ttl time.Duration) (acquired bool, err error)

	// RenewLease extends an existing lease owned by 'owner' for the given ttl.
	RenewLease(ctx context.Context, threadID, owner string, ttl time.Duration) error

	// ReleaseLease releases a lease if it is owned by 'owner'. It is idempotent.
	ReleaseLease(ctx context.Context, threadID, owner string) error
}
