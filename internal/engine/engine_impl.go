package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/advisa/internal/persistence"
	"github.com/petrijr/advisa/pkg/api"
)

// Default run limits, overridable via Config.
const (
	DefaultMaxIterations = 25
	DefaultLeaseTTL      = 30 * time.Second
)

// Config describes how to construct an engine.
type Config struct {
	// Graph is the compiled step graph driving every thread. Required.
	Graph *api.Graph

	// Store is the durable checkpoint store. Required.
	Store persistence.Store

	// Observer receives run and step lifecycle callbacks.
	// Defaults to api.NoopObserver.
	Observer api.Observer

	// MaxIterations caps the number of steps a single run may execute
	// before failing with *api.MaxIterationsError.
	// Defaults to DefaultMaxIterations.
	MaxIterations int

	// LeaseTTL is how long the per-thread lease is held between renewals.
	// Defaults to DefaultLeaseTTL.
	LeaseTTL time.Duration
}

// engineImpl is a synchronous, in-process engine. Distinct threads run
// concurrently; runs for the same thread serialize on a per-thread mutex
// in-process and on the store's lease across processes.
type engineImpl struct {
	graph    *api.Graph
	store    persistence.Store
	observer api.Observer

	maxIterations int
	leaseTTL      time.Duration

	// owner identifies this engine instance in store leases.
	owner string

	locks *threadLocks
}

// New constructs an engine from cfg, applying defaults for optional fields.
func New(cfg Config) (api.Engine, error) {
	if cfg.Graph == nil {
		return nil, errors.New("engine: graph is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("engine: checkpoint store is required")
	}

	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	ttl := cfg.LeaseTTL
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}

	return &engineImpl{
		graph:         cfg.Graph,
		store:         cfg.Store,
		observer:      obs,
		maxIterations: maxIter,
		leaseTTL:      ttl,
		owner:         uuid.NewString(),
		locks:         newThreadLocks(),
	}, nil
}

func (e *engineImpl) Invoke(ctx context.Context, threadID string, in api.Input) (*api.ThreadState, error) {
	return e.run(ctx, threadID, in, nil)
}

func (e *engineImpl) Stream(ctx context.Context, threadID string, in api.Input) (<-chan api.StreamEvent, error) {
	if threadID == "" {
		return nil, errors.New("engine: thread ID is required")
	}

	events := make(chan api.StreamEvent, 16)
	emit := func(ev api.StreamEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(events)

		state, err := e.run(ctx, threadID, in, emit)
		if err != nil {
			emit(api.StreamEvent{Err: err, Final: true})
			return
		}
		emit(api.StreamEvent{State: state, Final: true})
	}()

	return events, nil
}

func (e *engineImpl) GetState(ctx context.Context, threadID string) (*api.StateSnapshot, error) {
	cp, err := e.store.Latest(ctx, threadID)
	if err != nil {
		if errors.Is(err, persistence.ErrThreadNotFound) {
			return nil, err
		}
		return nil, &api.CheckpointIOError{Op: "load", Err: err}
	}
	return &api.StateSnapshot{
		ThreadID:    cp.ThreadID,
		Values:      cp.State.Clone(),
		PendingStep: cp.PendingStep,
		Seq:         cp.Seq,
		CreatedAt:   cp.CreatedAt,
	}, nil
}

func (e *engineImpl) Threads(ctx context.Context) ([]string, error) {
	threads, err := e.store.Threads(ctx)
	if err != nil {
		return nil, &api.CheckpointIOError{Op: "list", Err: err}
	}
	return threads, nil
}

// run executes the step loop for one thread turn. emit may be nil for
// non-streaming runs.
func (e *engineImpl) run(ctx context.Context, threadID string, in api.Input, emit func(api.StreamEvent)) (*api.ThreadState, error) {
	if threadID == "" {
		return nil, errors.New("engine: thread ID is required")
	}

	lock := e.locks.get(threadID)
	lock.Lock()
	defer lock.Unlock()

	acquired, err := e.store.TryAcquireLease(ctx, threadID, e.owner, e.leaseTTL)
	if err != nil {
		return nil, &api.CheckpointIOError{Op: "lease", Err: err}
	}
	if !acquired {
		return nil, fmt.Errorf("thread %s: %w", threadID, api.ErrThreadBusy)
	}
	defer func() {
		// Best effort: an expired lease is released by time anyway.
		_ = e.store.ReleaseLease(context.WithoutCancel(ctx), threadID, e.owner)
	}()

	e.observer.OnRunStart(ctx, threadID)

	state, pending, seq, err := e.loadThread(ctx, threadID)
	if err != nil {
		e.observer.OnRunFailed(ctx, threadID, err)
		return nil, err
	}

	d := in.Delta()
	if pending == api.End {
		// The previous run finished. New input re-enters the graph at the
		// entry; an empty turn is a no-op returning the last state.
		if d.IsZero() {
			e.observer.OnRunCompleted(ctx, threadID, 0)
			final := state.Clone()
			return &final, nil
		}
		pending = e.graph.Entry()
	}

	if !d.IsZero() {
		state = state.Merge(d)
		seq++
		if err := e.checkpoint(ctx, threadID, seq, state, pending); err != nil {
			e.observer.OnRunFailed(ctx, threadID, err)
			return nil, err
		}
	}

	steps := 0
	for pending != api.End {
		if err := ctx.Err(); err != nil {
			e.observer.OnRunFailed(ctx, threadID, err)
			return nil, err
		}
		if steps >= e.maxIterations {
			err := &api.MaxIterationsError{ThreadID: threadID, Limit: e.maxIterations}
			e.observer.OnRunFailed(ctx, threadID, err)
			return nil, err
		}
		steps++

		fn, ok := e.graph.Node(pending)
		if !ok {
			err := fmt.Errorf("thread %s: checkpoint references unknown step %q", threadID, pending)
			e.observer.OnRunFailed(ctx, threadID, err)
			return nil, err
		}

		e.observer.OnStepStart(ctx, threadID, pending, seq)
		started := time.Now()
		delta, err := fn(ctx, state.Clone())
		e.observer.OnStepCompleted(ctx, threadID, pending, seq, err, time.Since(started))
		if err != nil {
			e.observer.OnRunFailed(ctx, threadID, err)
			return nil, fmt.Errorf("step %s: %w", pending, err)
		}

		state = state.Merge(delta)

		next, err := e.graph.Next(pending, state)
		if err != nil {
			e.observer.OnRunFailed(ctx, threadID, err)
			return nil, err
		}

		seq++
		if err := e.checkpoint(ctx, threadID, seq, state, next); err != nil {
			e.observer.OnRunFailed(ctx, threadID, err)
			return nil, err
		}
		if err := e.store.RenewLease(ctx, threadID, e.owner, e.leaseTTL); err != nil {
			err = &api.CheckpointIOError{Op: "lease", Err: err}
			e.observer.OnRunFailed(ctx, threadID, err)
			return nil, err
		}

		if emit != nil {
			emit(api.StreamEvent{Mode: api.StreamNodeUpdate, Node: pending, Delta: &delta})
			for _, msg := range delta.AppendMessages {
				m := msg
				emit(api.StreamEvent{Mode: api.StreamMessage, Node: pending, Message: &m})
			}
			emit(api.StreamEvent{Mode: api.StreamProgress, Node: pending, Progress: map[string]any{
				"iteration":    steps,
				"pending_step": next,
			}})
		}

		pending = next
	}

	e.observer.OnRunCompleted(ctx, threadID, steps)
	final := state.Clone()
	return &final, nil
}

// loadThread returns the thread's latest state, its pending step and the
// latest sequence number. A thread without checkpoints starts at the graph
// entry; a finished thread's pending step is End and the caller decides
// whether to re-enter the graph.
func (e *engineImpl) loadThread(ctx context.Context, threadID string) (api.ThreadState, string, int64, error) {
	cp, err := e.store.Latest(ctx, threadID)
	if err != nil {
		if errors.Is(err, persistence.ErrThreadNotFound) {
			return api.ThreadState{}, e.graph.Entry(), 0, nil
		}
		return api.ThreadState{}, "", 0, &api.CheckpointIOError{Op: "load", Err: err}
	}

	pending := cp.PendingStep
	if pending == "" {
		pending = e.graph.Entry()
	}
	return cp.State.Clone(), pending, cp.Seq, nil
}

func (e *engineImpl) checkpoint(ctx context.Context, threadID string, seq int64, state api.ThreadState, pending string) error {
	cp := &api.Checkpoint{
		ThreadID:    threadID,
		Seq:         seq,
		State:       state.Clone(),
		PendingStep: pending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.Save(ctx, cp); err != nil {
		return &api.CheckpointIOError{Op: "save", Err: err}
	}
	return nil
}
