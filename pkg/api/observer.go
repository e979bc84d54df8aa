package api

import (
	"context"
	"log/slog"
	"time"
)

// Observer receives callbacks from the engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay the step loop.
type Observer interface {
	// OnRunStart is called once per run, after the thread's lock and lease
	// are held but before the first step executes.
	OnRunStart(ctx context.Context, threadID string)

	// OnRunCompleted is called when a run reaches the terminal node.
	OnRunCompleted(ctx context.Context, threadID string, steps int)

	// OnRunFailed is called when a run ends with an error.
	OnRunFailed(ctx context.Context, threadID string, err error)

	// OnStepStart is called before invoking a node's transform.
	OnStepStart(ctx context.Context, threadID string, step string, seq int64)

	// OnStepCompleted is called after a node's transform returns, for both
	// successes and failures (err != nil).
	OnStepCompleted(ctx context.Context, threadID string, step string, seq int64, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, threadID string)                  {}
func (NoopObserver) OnRunCompleted(ctx context.Context, threadID string, steps int)   {}
func (NoopObserver) OnRunFailed(ctx context.Context, threadID string, err error)      {}
func (NoopObserver) OnStepStart(ctx context.Context, threadID, step string, seq int64) {}
func (NoopObserver) OnStepCompleted(ctx context.Context, threadID, step string, seq int64, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, threadID string) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, threadID)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, threadID string, steps int) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, threadID, steps)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, threadID string, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, threadID, err)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, threadID, step string, seq int64) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, threadID, step, seq)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, threadID, step string, seq int64, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, threadID, step, seq, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / step lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, threadID string) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("thread_id", threadID),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, threadID string, steps int) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("thread_id", threadID),
		slog.Int("steps", steps),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, threadID string, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("thread_id", threadID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, threadID, step string, seq int64) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("thread_id", threadID),
		slog.String("step", step),
		slog.Int64("seq", seq),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, threadID, step string, seq int64, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("thread_id", threadID),
		slog.String("step", step),
		slog.Int64("seq", seq),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}
