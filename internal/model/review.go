package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrMalformedEvent means a queued item is not parseable JSON at all.
var ErrMalformedEvent = errors.New("agent event is not valid JSON")

// ValidatedReview is the typed form of an agent event's embedded review object.
// Only the review validator produces values of this type.
type ValidatedReview struct {
	Repo    string   `json:"repo" jsonschema:"required,description=Repository the review refers to"`
	PR      int64    `json:"pr" jsonschema:"required,description=Pull request number"`
	Comment string   `json:"comment" jsonschema:"required"`
	Score   *float64 `json:"score,omitempty" jsonschema:"description=Optional reviewer score"`
}

// AgentEvent is the envelope the dispatcher reads out of a queued item. Fields
// other than these are carried through the queue untouched.
type AgentEvent struct {
	Priority string
	Action   string
	Review   json.RawMessage
}

// ParseAgentEvent reads an event without imposing types on its fields. Priority and
// action are read only when they are strings. Well-formed JSON that is not an
// object yields an event with no review. Only unparseable input and null fail.
func ParseAgentEvent(raw []byte) (AgentEvent, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) || bytes.Equal(trimmed, []byte("null")) {
		return AgentEvent{}, ErrMalformedEvent
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return AgentEvent{}, nil
	}

	var event AgentEvent
	_ = json.Unmarshal(fields["priority"], &event.Priority)
	_ = json.Unmarshal(fields["action"], &event.Action)
	event.Review = fields["review"]
	return event, nil
}
