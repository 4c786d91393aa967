package gstreamer

import (
	"time"

	"github.com/google/uuid"
)

// MessageType identifies what a bus message reports.
type MessageType string

const (
	MessageError        MessageType = "error"
	MessageStateChanged MessageType = "state-changed"

	// MessageAny matches every type when registering bus handlers.
	MessageAny MessageType = "*"
)

// Message is the bus form of an element notification.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Source    string      `json:"source"`
	Factory   string      `json:"factory"`
	Timestamp time.Time   `json:"timestamp"`
	OldState  State       `json:"old_state,omitempty"`
	NewState  State       `json:"new_state,omitempty"`
	Error     *GError     `json:"error,omitempty"`
	Debug     string      `json:"debug,omitempty"`
}

func newStateChangedMessage(e *Element, oldState, newState State) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      MessageStateChanged,
		Source:    e.Name(),
		Factory:   e.factory.Name,
		Timestamp: time.Now(),
		OldState:  oldState,
		NewState:  newState,
	}
}

func newErrorMessage(e *Element, step Transition, gerr *GError, debug string) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      MessageError,
		Source:    e.Name(),
		Factory:   e.factory.Name,
		Timestamp: time.Now(),
		OldState:  step.From,
		NewState:  step.To,
		Error:     gerr,
		Debug:     debug,
	}
}
