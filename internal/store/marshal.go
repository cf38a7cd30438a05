package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/roamwatch/internal/notify"
)

// marshalPayload converts an event payload to canonical JSON TEXT for storage.
func marshalPayload(ev notify.Event) (string, error) {
	data, err := notify.MarshalCanonical(notify.Fields(ev))
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// marshalNotes converts outcome notes to a canonical JSON array.
// Nil notes are stored as [] so the column is never NULL.
func marshalNotes(notes []string) (string, error) {
	if notes == nil {
		notes = []string{}
	}
	data, err := notify.MarshalCanonical(notes)
	if err != nil {
		return "", fmt.Errorf("marshal notes: %w", err)
	}
	return string(data), nil
}

// unmarshalNotes is the inverse of marshalNotes. An empty array yields nil,
// matching outcomes built by the engine.
func unmarshalNotes(data string) ([]string, error) {
	var notes []string
	if err := json.Unmarshal([]byte(data), &notes); err != nil {
		return nil, fmt.Errorf("unmarshal notes: %w", err)
	}
	if len(notes) == 0 {
		return nil, nil
	}
	return notes, nil
}
