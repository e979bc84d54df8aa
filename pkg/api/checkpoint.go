package api

import "time"

// Checkpoint is an immutable snapshot of a thread taken after every
// successful step: the merged state plus the name of the next step to run.
//
// Checkpoints for a thread are totally ordered by Seq. A new checkpoint
// supersedes (never deletes) the previous one; stores always serve the
// checkpoint with the highest Seq for a thread. Seq also acts as the
// optimistic-concurrency token: a store must reject a save whose Seq is
// not exactly one past the latest persisted value.
type Checkpoint struct {
	ThreadID    string      `json:"thread_id"`
	Seq         int64       `json:"seq"`
	State       ThreadState `json:"state"`
	PendingStep string      `json:"pending_step"`
	CreatedAt   time.Time   `json:"created_at"`
}
