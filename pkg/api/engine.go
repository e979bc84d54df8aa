package api

import (
	"context"
	"time"
)

// Input is the per-turn update a caller hands to the engine: the new user
// utterance and, on the first turn, the process report to analyze.
type Input struct {
	UserInput     string         `json:"user_input"`
	ProcessReport *ProcessReport `json:"process_report,omitempty"`
}

// Delta converts the input into the partial update merged into the thread
// state before the step loop starts. The utterance is also logged as a
// user turn so the decider sees the full conversation.
func (in Input) Delta() StateDelta {
	var d StateDelta
	if in.UserInput != "" {
		ui := in.UserInput
		d.UserInput = &ui
		d.AppendMessages = []Message{{Role: RoleUser, Content: in.UserInput}}
	}
	if in.ProcessReport != nil {
		d.ProcessReport = in.ProcessReport
	}
	return d
}

// StateSnapshot is the read-only view of a thread returned by GetState.
type StateSnapshot struct {
	ThreadID    string      `json:"thread_id"`
	Values      ThreadState `json:"values"`
	PendingStep string      `json:"pending_step"`
	Seq         int64       `json:"seq"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Engine drives conversation threads through the step graph.
//
// Many distinct threads may run concurrently, but at most one run is
// active per thread ID at a time: in-process callers queue behind each
// other, and a second process is rejected with ErrThreadBusy via the
// store's lease.
type Engine interface {
	// Invoke merges the input into the thread's state, runs the step loop
	// to the terminal node and returns the final state.
	Invoke(ctx context.Context, threadID string, in Input) (*ThreadState, error)

	// Stream is Invoke with partial progress: it returns an ordered event
	// sequence that terminates with a Final event. Cancelling ctx aborts
	// the run at the next step boundary; the last saved checkpoint stays
	// valid and resumable.
	Stream(ctx context.Context, threadID string, in Input) (<-chan StreamEvent, error)

	// GetState returns the latest checkpointed view of a thread.
	GetState(ctx context.Context, threadID string) (*StateSnapshot, error)

	// Threads lists the thread IDs known to the checkpoint store.
	Threads(ctx context.Context) ([]string, error)
}
