package gstreamer

import (
	"fmt"
	"strconv"
	"strings"
)

// Fault is a forced-error code. Each ordered pair of adjacent states has
// exactly one code; setting it on an element makes that transition fail.
type Fault int

const (
	FaultNone Fault = iota
	FaultNullReady
	FaultReadyPaused
	FaultPausedPlaying
	FaultPlayingPaused
	FaultPausedReady
	FaultReadyNull
)

// Transition is an ordered pair of states.
type Transition struct {
	From State `json:"from"`
	To   State `json:"to"`
}

// String renders the pair as "FROM -> TO".
func (t Transition) String() string {
	return t.From.String() + " -> " + t.To.String()
}

var faultTransitions = map[Fault]Transition{
	FaultNullReady:     {StateNull, StateReady},
	FaultReadyPaused:   {StateReady, StatePaused},
	FaultPausedPlaying: {StatePaused, StatePlaying},
	FaultPlayingPaused: {StatePlaying, StatePaused},
	FaultPausedReady:   {StatePaused, StateReady},
	FaultReadyNull:     {StateReady, StateNull},
}

var faultNicks = map[Fault]string{
	FaultNone:          "none",
	FaultNullReady:     "null-ready",
	FaultReadyPaused:   "ready-paused",
	FaultPausedPlaying: "paused-playing",
	FaultPlayingPaused: "playing-paused",
	FaultPausedReady:   "paused-ready",
	FaultReadyNull:     "ready-null",
}

// String returns the fault nick.
func (f Fault) String() string {
	if nick, ok := faultNicks[f]; ok {
		return nick
	}
	return "unknown(" + strconv.Itoa(int(f)) + ")"
}

// Transition returns the pair the fault applies to. ok is false for FaultNone
// and unknown codes.
func (f Fault) Transition() (Transition, bool) {
	t, ok := faultTransitions[f]
	return t, ok
}

// FaultFor returns the code that forces the from -> to transition to fail,
// or FaultNone when the states are not adjacent.
func FaultFor(from, to State) Fault {
	for f, t := range faultTransitions {
		if t.From == from && t.To == to {
			return f
		}
	}
	return FaultNone
}

// ParseFault accepts the enum value, any integer kind, a decimal string or a
// nick ("null-ready").
func ParseFault(value any) (Fault, error) {
	var f Fault
	switch v := value.(type) {
	case Fault:
		f = v
	case int:
		f = Fault(v)
	case int32:
		f = Fault(v)
	case int64:
		f = Fault(v)
	case uint:
		f = Fault(v)
	case uint32:
		f = Fault(v)
	case uint64:
		f = Fault(v)
	case float64:
		if v != float64(int(v)) {
			return FaultNone, fmt.Errorf("state-error must be integral, got %v", v)
		}
		f = Fault(int(v))
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if n, err := strconv.Atoi(s); err == nil {
			f = Fault(n)
			break
		}
		for code, nick := range faultNicks {
			if nick == s {
				return code, nil
			}
		}
		return FaultNone, fmt.Errorf("unknown state-error value %q", v)
	default:
		return FaultNone, fmt.Errorf("unsupported state-error type %T", value)
	}

	if _, ok := faultNicks[f]; !ok {
		return FaultNone, fmt.Errorf("state-error code %d out of range", int(f))
	}
	return f, nil
}

// MarshalText encodes the fault as its nick.
func (f Fault) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText accepts a nick or a decimal code.
func (f *Fault) UnmarshalText(text []byte) error {
	parsed, err := ParseFault(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
