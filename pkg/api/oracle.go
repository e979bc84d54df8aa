package api

import (
	"context"
	"strings"
	"sync"
)

// Oracle is the external classification/generation service consulted by
// the router and decider nodes. Input is an ordered list of turns (the
// first usually a system instruction); output is free-form text, the first
// line of which is interpreted as a route tag by the callers.
//
// Implementations wrap transport failures and malformed responses in
// *OracleError so callers can treat them as transient.
type Oracle interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// FirstLine trims the reply and returns its first line. This is the whole
// tag-parsing policy: anything beyond an exact match against the route set
// is handled downstream as a routing failure, not fuzzy-matched.
func FirstLine(reply string) string {
	reply = strings.TrimSpace(reply)
	if i := strings.IndexByte(reply, '\n'); i >= 0 {
		reply = reply[:i]
	}
	return strings.TrimSpace(reply)
}

// ScriptedOracle replays a fixed sequence of replies. It is the reference
// oracle for tests, examples and offline development: deterministic, no
// network, records every prompt it was given.
type ScriptedOracle struct {
	mu      sync.Mutex
	replies []string
	next    int

	// Prompts records the message lists passed to Complete, in order.
	Prompts [][]Message
}

// NewScriptedOracle returns an oracle that answers with the given replies
// in order, repeating the last reply once the script is exhausted.
func NewScriptedOracle(replies ...string) *ScriptedOracle {
	return &ScriptedOracle{replies: replies}
}

// Complete implements Oracle.
func (o *ScriptedOracle) Complete(_ context.Context, messages []Message) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.Prompts = append(o.Prompts, append([]Message(nil), messages...))

	if len(o.replies) == 0 {
		return "", &OracleError{Err: errEmptyScript}
	}
	reply := o.replies[min(o.next, len(o.replies)-1)]
	o.next++
	return reply, nil
}

// Calls returns how many times the oracle has been consulted.
func (o *ScriptedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Prompts)
}

var errEmptyScript = &scriptError{}

type scriptError struct{}

func (*scriptError) Error() string { return "scripted oracle has no replies configured" }
