package api

import (
	"encoding/json"
	"fmt"
)

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles. The oracle protocol only distinguishes these three.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ThreadState is the shared record for one conversation thread.
//
// Every field carries a merge policy, applied when a step's partial output
// (StateDelta) is folded into the running state:
//
//   - ConversationHistory: append-only. New turns are concatenated to the
//     end; no step may remove prior turns.
//   - All other fields: replace. A value present in the delta wins, an
//     absent value keeps the old one. CalculatedMetrics is replaced
//     wholesale on each compute, never merged key-by-key.
type ThreadState struct {
	UserInput               string             `json:"user_input"`
	ProcessReport           *ProcessReport     `json:"process_report,omitempty"`
	ConversationHistory     []Message          `json:"conversation_history"`
	Route                   Route              `json:"route,omitempty"`
	CalculatedMetrics       map[string]float64 `json:"calculated_metrics,omitempty"`
	AdvisoryRecommendations []string           `json:"advisory_recommendations,omitempty"`
}

// StateDelta is a partial update produced by a single step.
//
// Pointer / nil-able fields distinguish "not set" from "set to zero value":
// a nil field leaves the state untouched, a non-nil field replaces it.
// AppendMessages is the one append-policy field.
type StateDelta struct {
	UserInput               *string            `json:"user_input,omitempty"`
	ProcessReport           *ProcessReport     `json:"process_report,omitempty"`
	AppendMessages          []Message          `json:"append_messages,omitempty"`
	Route                   *Route             `json:"route,omitempty"`
	CalculatedMetrics       map[string]float64 `json:"calculated_metrics,omitempty"`
	AdvisoryRecommendations []string           `json:"advisory_recommendations,omitempty"`
}

// IsZero reports whether the delta carries no update at all.
func (d StateDelta) IsZero() bool {
	return d.UserInput == nil &&
		d.ProcessReport == nil &&
		len(d.AppendMessages) == 0 &&
		d.Route == nil &&
		d.CalculatedMetrics == nil &&
		d.AdvisoryRecommendations == nil
}

// Merge folds a partial update into the state according to the per-field
// merge policies and returns the resulting state. The receiver is not
// modified; history slices are copied so later appends cannot alias.
func (s ThreadState) Merge(d StateDelta) ThreadState {
	out := s

	if d.UserInput != nil {
		out.UserInput = *d.UserInput
	}
	if d.ProcessReport != nil {
		out.ProcessReport = d.ProcessReport
	}
	if len(d.AppendMessages) > 0 {
		history := make([]Message, 0, len(s.ConversationHistory)+len(d.AppendMessages))
		history = append(history, s.ConversationHistory...)
		history = append(history, d.AppendMessages...)
		out.ConversationHistory = history
	}
	if d.Route != nil {
		out.Route = *d.Route
	}
	if d.CalculatedMetrics != nil {
		out.CalculatedMetrics = d.CalculatedMetrics
	}
	if d.AdvisoryRecommendations != nil {
		out.AdvisoryRecommendations = d.AdvisoryRecommendations
	}

	return out
}

// Clone returns a deep copy of the state. Checkpoints hold clones so a
// running step can never mutate persisted history through shared slices.
func (s ThreadState) Clone() ThreadState {
	out := s
	if s.ConversationHistory != nil {
		out.ConversationHistory = append([]Message(nil), s.ConversationHistory...)
	}
	if s.CalculatedMetrics != nil {
		out.CalculatedMetrics = make(map[string]float64, len(s.CalculatedMetrics))
		for k, v := range s.CalculatedMetrics {
			out.CalculatedMetrics[k] = v
		}
	}
	if s.AdvisoryRecommendations != nil {
		out.AdvisoryRecommendations = append([]string(nil), s.AdvisoryRecommendations...)
	}
	if s.ProcessReport != nil {
		rpt := s.ProcessReport.Clone()
		out.ProcessReport = &rpt
	}
	return out
}

// deltaFields names every field a map-form update may reference.
var deltaFields = map[string]struct{}{
	"user_input":               {},
	"process_report":           {},
	"conversation_history":     {},
	"route":                    {},
	"calculated_metrics":       {},
	"advisory_recommendations": {},
}

// DeltaFromMap converts a loosely-typed update into a StateDelta. It is
// the entry point for callers that hold state updates as maps, such as
// embedders bridging from dynamic payloads, rather than for the typed
// Input path the engine and HTTP layer use. A key that does not name a
// known state field is an error, not a silent no-op.
// "conversation_history" entries are treated as turns to append.
func DeltaFromMap(update map[string]any) (StateDelta, error) {
	var d StateDelta

	for key := range update {
		if _, ok := deltaFields[key]; !ok {
			return StateDelta{}, fmt.Errorf("unknown state field %q", key)
		}
	}

	// Round-trip through JSON so the wire representation and the typed
	// representation cannot drift apart.
	raw, err := json.Marshal(update)
	if err != nil {
		return StateDelta{}, err
	}

	var boxed struct {
		UserInput               *string            `json:"user_input"`
		ProcessReport           *ProcessReport     `json:"process_report"`
		ConversationHistory     []Message          `json:"conversation_history"`
		Route                   *Route             `json:"route"`
		CalculatedMetrics       map[string]float64 `json:"calculated_metrics"`
		AdvisoryRecommendations []string           `json:"advisory_recommendations"`
	}
	if err := json.Unmarshal(raw, &boxed); err != nil {
		return StateDelta{}, fmt.Errorf("malformed state update: %w", err)
	}

	d.UserInput = boxed.UserInput
	d.ProcessReport = boxed.ProcessReport
	d.AppendMessages = boxed.ConversationHistory
	d.Route = boxed.Route
	d.CalculatedMetrics = boxed.CalculatedMetrics
	d.AdvisoryRecommendations = boxed.AdvisoryRecommendations

	return d, nil
}
