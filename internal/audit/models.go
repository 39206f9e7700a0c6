// Package audit records address-book mutations for operational visibility.
// It observes the book; it is not a persistence backend for it.
package audit

import "time"

type Action string

const (
	ActionRecordCommitted Action = "record_committed"
	ActionRecordRemoved   Action = "record_removed"
	ActionBookReplaced    Action = "book_replaced"
	ActionSessionStarted  Action = "session_started"
	ActionSessionCleared  Action = "session_cleared"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	RecordID  string    `json:"record_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
