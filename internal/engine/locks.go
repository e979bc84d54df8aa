package engine

import "sync"

// threadLocks hands out one mutex per thread ID so in-process callers for
// the same thread queue behind each other instead of racing the store's
// sequence check. Mutexes are never removed; the set of active threads in
// one process is small.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*sync.Mutex)}
}

func (t *threadLocks) get(threadID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[threadID] = l
	}
	return l
}
