package api

import (
	"errors"
	"fmt"
)

// Graph validation rules reported by GraphBuilder.Compile.
const (
	RuleMissingEntry     = "missing-entry"
	RuleUnknownTarget    = "unknown-target"
	RuleUnreachableNode  = "unreachable-node"
	RuleConflictingEdges = "conflicting-edges"
)

// GraphValidationError reports a structural problem found at compile time.
// It is fatal: an invalid graph is never partially usable.
type GraphValidationError struct {
	Rule   string
	Detail string
}

func (e *GraphValidationError) Error() string {
	return fmt.Sprintf("graph validation failed (%s): %s", e.Rule, e.Detail)
}

// RouteNotFoundError reports that a classification tag did not match any
// configured edge target. It ends the run for the current turn; the last
// checkpoint remains valid and the thread can be re-invoked.
type RouteNotFoundError struct {
	Node string
	Tag  Route
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no edge from %q matches route %q", e.Node, e.Tag)
}

// UserMessage returns the plain-language explanation shown to the caller.
func (e *RouteNotFoundError) UserMessage() string {
	return "I could not determine the next action for your request. Please rephrase and try again."
}

// MaxIterationsError is the engine's safety stop: the step loop exceeded
// its configured cap without reaching the terminal node.
type MaxIterationsError struct {
	ThreadID string
	Limit    int
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("thread %s exceeded %d iterations without finishing", e.ThreadID, e.Limit)
}

// UserMessage returns the plain-language explanation shown to the caller.
func (e *MaxIterationsError) UserMessage() string {
	return "The conversation could not be resolved automatically. Please start a new request."
}

// OracleError wraps a failure of the external classification oracle
// (timeout, transport failure, malformed response). It is transient:
// callers retry a bounded number of times before letting it propagate.
type OracleError struct {
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle request failed: %v", e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// UserMessage returns the plain-language explanation shown to the caller.
func (e *OracleError) UserMessage() string {
	return "The assistant is temporarily unavailable. Please try again shortly."
}

// CheckpointIOError wraps a checkpoint storage failure. It is fatal to the
// current run; previously saved checkpoints remain intact, so the thread
// stays resumable once storage recovers.
type CheckpointIOError struct {
	Op  string
	Err error
}

func (e *CheckpointIOError) Error() string {
	return fmt.Sprintf("checkpoint %s failed: %v", e.Op, e.Err)
}

func (e *CheckpointIOError) Unwrap() error {
	return e.Err
}

// UserMessage returns the plain-language explanation shown to the caller.
func (e *CheckpointIOError) UserMessage() string {
	return "Your conversation could not be saved. Please try again shortly."
}

// ErrThreadBusy is returned when a second run is requested for a thread
// that already has an active run. At most one run per thread may hold the
// thread's state at a time.
var ErrThreadBusy = errors.New("thread is busy with another run")

// userMessager is implemented by run-time errors that carry a caller-facing
// explanation distinct from their internal kind.
type userMessager interface {
	UserMessage() string
}

// UserMessage extracts the plain-language explanation from err, falling
// back to a generic one for errors without their own.
func UserMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	if errors.Is(err, ErrThreadBusy) {
		return "This conversation is already being processed. Please wait for it to finish."
	}
	return "Something went wrong while processing your request."
}
