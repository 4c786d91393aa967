package gstreamer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateName(t *testing.T) {
	tests := []struct {
		name string
		code any
		want string
	}{
		{"null", StateNull, "NULL"},
		{"ready", StateReady, "READY"},
		{"paused", StatePaused, "PAUSED"},
		{"playing", StatePlaying, "PLAYING"},
		{"void pending", StateVoidPending, "NONE_PENDING"},
		{"raw int", 4, "PLAYING"},
		{"raw zero", 0, "NONE_PENDING"},
		{"negative", -1, "UNKNOWN!"},
		{"large", 42, "UNKNOWN!"},
		{"int64", int64(2), "READY"},
		{"uint8", uint8(3), "PAUSED"},
		{"large uint", uint64(1 << 40), "UNKNOWN!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StateName(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateName_InputTypeError(t *testing.T) {
	for _, input := range []any{"NULL", "1", 1.5, 2.0, true, nil, []int{1}} {
		_, err := StateName(input)
		assert.ErrorIs(t, err, ErrInputType, "input %#v", input)
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		input string
		want  State
	}{
		{"NULL", StateNull},
		{"null", StateNull},
		{"STATE_READY", StateReady},
		{"GST_STATE_PAUSED", StatePaused},
		{" playing ", StatePlaying},
		{"3", StatePaused},
		{"VOID_PENDING", StateVoidPending},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseState(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseState("RUNNING")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestState_TextRoundTrip(t *testing.T) {
	for _, s := range States {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var decoded State
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, s, decoded)
	}
}

func TestState_IsValid(t *testing.T) {
	assert.False(t, StateVoidPending.IsValid())
	assert.False(t, State(5).IsValid())
	for _, s := range States {
		assert.True(t, s.IsValid(), s.String())
	}
}
