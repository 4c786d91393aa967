package gstreamer

import (
	"sync"
	"time"
)

// DefaultHistorySize is the number of transitions an element remembers.
const DefaultHistorySize = 100

// StateTransitionEvent records one attempted transition step.
type StateTransitionEvent struct {
	From      State         `json:"from"`
	To        State         `json:"to"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Fault     Fault         `json:"fault,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// StateHistory maintains a bounded history of state transitions
type StateHistory struct {
	transitions []StateTransitionEvent
	maxSize     int
	mutex       sync.RWMutex
}

// NewStateHistory creates a new state history
func NewStateHistory(maxSize int) *StateHistory {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &StateHistory{
		transitions: make([]StateTransitionEvent, 0, maxSize),
		maxSize:     maxSize,
	}
}

// Add adds a state transition to the history
func (sh *StateHistory) Add(transition StateTransitionEvent) {
	sh.mutex.Lock()
	defer sh.mutex.Unlock()

	sh.transitions = append(sh.transitions, transition)

	// Maintain max size by removing oldest entries
	if len(sh.transitions) > sh.maxSize {
		sh.transitions = sh.transitions[len(sh.transitions)-sh.maxSize:]
	}
}

// GetRecent returns the most recent transitions
func (sh *StateHistory) GetRecent(count int) []StateTransitionEvent {
	sh.mutex.RLock()
	defer sh.mutex.RUnlock()

	if count <= 0 || len(sh.transitions) == 0 {
		return []StateTransitionEvent{}
	}

	start := len(sh.transitions) - count
	if start < 0 {
		start = 0
	}

	result := make([]StateTransitionEvent, len(sh.transitions)-start)
	copy(result, sh.transitions[start:])
	return result
}

// GetAll returns all transitions in the history
func (sh *StateHistory) GetAll() []StateTransitionEvent {
	sh.mutex.RLock()
	defer sh.mutex.RUnlock()

	result := make([]StateTransitionEvent, len(sh.transitions))
	copy(result, sh.transitions)
	return result
}

// ElementStats holds per-element transition statistics.
type ElementStats struct {
	CurrentState    State     `json:"current_state"`
	StateChanges    int64     `json:"state_changes"`
	FailedChanges   int64     `json:"failed_changes"`
	LastStateChange time.Time `json:"last_state_change"`
	LastError       string    `json:"last_error,omitempty"`
	LastErrorTime   time.Time `json:"last_error_time,omitempty"`
}
