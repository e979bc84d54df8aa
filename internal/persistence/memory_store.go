package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/petrijr/advisa/pkg/api"
)

// InMemoryStore is a goroutine-safe Store backed by maps. It keeps the full
// checkpoint history per thread, which makes it the reference backend for
// tests and single-process development.
type InMemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string][]*api.Checkpoint
	leases      map[string]lease
}

type lease struct {
	owner   string
	expires time.Time
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		checkpoints: make(map[string][]*api.Checkpoint),
		leases:      make(map[string]lease),
	}
}

var _ Store = (*InMemoryStore)(nil)

func (s *InMemoryStore) Save(ctx context.Context, cp *api.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.checkpoints[cp.ThreadID]
	var latest int64
	if len(history) > 0 {
		latest = history[len(history)-1].Seq
	}
	if cp.Seq != latest+1 {
		return ErrSequenceConflict
	}

	// Store a detached copy so the caller's state cannot mutate history.
	stored := *cp
	stored.State = cp.State.Clone()
	s.checkpoints[cp.ThreadID] = append(history, &stored)
	return nil
}

func (s *InMemoryStore) Latest(ctx context.Context, threadID string) (*api.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.checkpoints[threadID]
	if len(history) == 0 {
		return nil, ErrThreadNotFound
	}
	latest := history[len(history)-1]
	out := *latest
	out.State = latest.State.Clone()
	return &out, nil
}

func (s *InMemoryStore) Threads(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.checkpoints))
	for id := range s.checkpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// History returns every checkpoint saved for a thread, oldest first.
// Only used by tests and debugging tools.
func (s *InMemoryStore) History(threadID string) []*api.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*api.Checkpoint(nil), s.checkpoints[threadID]...)
}

func (s *InMemoryStore) TryAcquireLease(ctx context.Context, threadID, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if l, ok := s.leases[threadID]; ok && l.owner != owner && now.Before(l.expires) {
		return false, nil
	}
	s.leases[threadID] = lease{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (s *InMemoryStore) RenewLease(ctx context.Context, threadID, owner string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leases[threadID]
	if !ok || l.owner != owner || time.Now().After(l.expires) {
		return ErrLeaseNotHeld
	}
	l.expires = time.Now().Add(ttl)
	s.leases[threadID] = l
	return nil
}

func (s *InMemoryStore) ReleaseLease(ctx context.Context, threadID, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.leases[threadID]; ok && l.owner == owner {
		delete(s.leases, threadID)
	}
	return nil
}
