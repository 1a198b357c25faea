package domain

import "time"

// State is one step of the execution state machine.
type State string

const (
	StateIdle       State = "Idle"
	StateValidating State = "Validating"
	StateApproving  State = "Approving"
	StateExecuting  State = "Executing"
	StateConfirming State = "Confirming"
	StateCompleted  State = "Completed"
	StateFailed     State = "Failed"
)

// ResponseEnvelope is the normalized outcome of one handled message.
type ResponseEnvelope struct {
	MessageID string           `json:"messageId"`
	Operation string           `json:"operation"`
	Success   bool             `json:"success"`
	Text      string           `json:"text,omitempty"`
	Data      map[string]any   `json:"data,omitempty"`
	Error     *ErrorDescriptor `json:"error,omitempty"`
	TxHashes  []string         `json:"txHashes,omitempty"`
	States    []State          `json:"states"`
	StartedAt time.Time        `json:"startedAt"`
	EndedAt   time.Time        `json:"endedAt"`
	// Receipts holds the JSON receipt of each mined transaction, by hash.
	Receipts map[string][]byte `json:"-"`
}

// Final returns the last visited state.
func (e ResponseEnvelope) Final() State {
	if len(e.States) == 0 {
		return StateIdle
	}
	return e.States[len(e.States)-1]
}

// TxHash returns the hash of the operation's own transaction, the last one
// submitted.
func (e ResponseEnvelope) TxHash() string {
	if len(e.TxHashes) == 0 {
		return ""
	}
	return e.TxHashes[len(e.TxHashes)-1]
}

// ErrorKind returns the failure kind, or "" on success.
func (e ResponseEnvelope) ErrorKind() ErrorKind {
	if e.Error == nil {
		return ""
	}
	return e.Error.Kind
}

// Handled is one processed message as seen by post-reply observers.
type Handled struct {
	MessageID string
	UserID    string
	RoomID    string
	Text      string
	Envelope  ResponseEnvelope
	ReplyText string
}
