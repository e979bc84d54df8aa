package api

// StreamMode classifies events emitted during a streaming run.
type StreamMode string

const (
	// StreamNodeUpdate carries the partial state update a node produced.
	StreamNodeUpdate StreamMode = "node-update"

	// StreamMessage carries a single new conversation turn.
	StreamMessage StreamMode = "message"

	// StreamProgress carries free-form progress data from the engine,
	// such as iteration counters.
	StreamProgress StreamMode = "custom-progress"
)

// StreamEvent is one element of the ordered event sequence a streaming run
// emits. Events arrive in execution order; the final event has Final set
// and carries either the final state or the run error.
type StreamEvent struct {
	Mode StreamMode `json:"mode"`

	// Node is the step that produced the event, when applicable.
	Node string `json:"node,omitempty"`

	// Delta is set for node-update events.
	Delta *StateDelta `json:"delta,omitempty"`

	// Message is set for message events.
	Message *Message `json:"message,omitempty"`

	// Progress is set for custom-progress events.
	Progress map[string]any `json:"progress,omitempty"`

	// State carries the full final state on the last successful event.
	State *ThreadState `json:"state,omitempty"`

	// Err is set on the last event of a failed run. It is not serialized;
	// transports convert it with UserMessage.
	Err error `json:"-"`

	// Final marks the last event of the stream.
	Final bool `json:"final,omitempty"`
}
