package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/petrijr/advisa/pkg/api"
)

// EncodeState serializes a ThreadState for storage. JSON is used so the
// persisted form matches the wire form and round-trips losslessly: every
// state field is a plain document type.
func EncodeState(state api.ThreadState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState deserializes a ThreadState previously written by EncodeState.
func DecodeState(data []byte) (api.ThreadState, error) {
	var state api.ThreadState
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return api.ThreadState{}, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}
