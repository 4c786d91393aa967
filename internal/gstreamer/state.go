package gstreamer

import (
	"fmt"
	"reflect"
	"strings"
)

// State is an element lifecycle state. The numeric values follow the
// framework's GstState codes so they can be exchanged with callers that use
// raw integers.
type State int

const (
	StateVoidPending State = iota
	StateNull
	StateReady
	StatePaused
	StatePlaying
)

// States lists the concrete states in lifecycle order.
var States = []State{StateNull, StateReady, StatePaused, StatePlaying}

var stateNames = map[State]string{
	StateVoidPending: "NONE_PENDING",
	StateNull:        "NULL",
	StateReady:       "READY",
	StatePaused:      "PAUSED",
	StatePlaying:     "PLAYING",
}

// String returns the state name, or "UNKNOWN!" for codes outside the table.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN!"
}

// IsValid reports whether s is one of the four concrete states.
func (s State) IsValid() bool {
	return s >= StateNull && s <= StatePlaying
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts any spelling ParseState understands.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// next returns the state one step from s towards target.
func (s State) next(target State) State {
	switch {
	case target > s:
		return s + 1
	case target < s:
		return s - 1
	default:
		return s
	}
}

// StateName maps a state code to its name. Integral values of any Go integer
// kind are accepted; VOID_PENDING maps to "NONE_PENDING" and codes without a
// name map to "UNKNOWN!". Anything else is an input type error.
func StateName(code any) (string, error) {
	if code == nil {
		return "", newInputTypeError(code)
	}
	if s, ok := code.(State); ok {
		return s.String(), nil
	}

	rv := reflect.ValueOf(code)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return State(rv.Int()).String(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > uint64(StatePlaying) {
			return "UNKNOWN!", nil
		}
		return State(u).String(), nil
	default:
		return "", newInputTypeError(code)
	}
}

// ParseState resolves a state by name. "PLAYING", "playing", "STATE_PLAYING"
// and "GST_STATE_PLAYING" are all accepted, as are the numeric codes.
func ParseState(name string) (State, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "GST_")
	key = strings.TrimPrefix(key, "STATE_")

	switch key {
	case "VOID_PENDING", "NONE_PENDING":
		return StateVoidPending, nil
	case "NULL", "1":
		return StateNull, nil
	case "READY", "2":
		return StateReady, nil
	case "PAUSED", "3":
		return StatePaused, nil
	case "PLAYING", "4":
		return StatePlaying, nil
	case "0":
		return StateVoidPending, nil
	}
	return StateVoidPending, fmt.Errorf("unknown state %q: %w", name, ErrInvalidState)
}
