package gstreamer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultFor_OneCodePerAdjacentPair(t *testing.T) {
	seen := make(map[Fault]Transition)
	for i := 0; i < len(States)-1; i++ {
		for _, pair := range []Transition{
			{States[i], States[i+1]},
			{States[i+1], States[i]},
		} {
			f := FaultFor(pair.From, pair.To)
			require.NotEqual(t, FaultNone, f, pair.String())
			_, dup := seen[f]
			assert.False(t, dup, "code %d reused", int(f))
			seen[f] = pair

			back, ok := f.Transition()
			require.True(t, ok)
			assert.Equal(t, pair, back)
		}
	}
	assert.Len(t, seen, 6)

	assert.Equal(t, FaultNone, FaultFor(StateNull, StatePlaying))
	assert.Equal(t, FaultNone, FaultFor(StateReady, StateReady))
}

func TestParseFault(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  Fault
	}{
		{"enum", FaultNullReady, FaultNullReady},
		{"int", 1, FaultNullReady},
		{"int64", int64(6), FaultReadyNull},
		{"uint", uint(3), FaultPausedPlaying},
		{"json number", float64(4), FaultPlayingPaused},
		{"decimal string", "1", FaultNullReady},
		{"nick", "paused-ready", FaultPausedReady},
		{"nick upper", "READY-PAUSED", FaultReadyPaused},
		{"zero", 0, FaultNone},
		{"none", "none", FaultNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFault(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFault_Invalid(t *testing.T) {
	for _, value := range []any{7, -1, "9", "sideways", 1.5, true} {
		_, err := ParseFault(value)
		assert.Error(t, err, "value %#v", value)
	}
}

func TestFault_String(t *testing.T) {
	assert.Equal(t, "null-ready", FaultNullReady.String())
	assert.Equal(t, "unknown(12)", Fault(12).String())
	assert.Equal(t, "NULL -> READY", Transition{StateNull, StateReady}.String())
}
