package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAvailable, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusPending, false},
		{StatusAvailable, StatusFailed, false},
		{StatusAvailable, StatusPending, false},
		{StatusFailed, StatusAvailable, false},
		{Status("UNKNOWN"), StatusAvailable, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheck_ReturnsTransitionError(t *testing.T) {
	require.NoError(t, Check(StatusPending, StatusAvailable))

	err := Check(StatusAvailable, StatusFailed)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StatusAvailable, te.From)
	assert.Equal(t, StatusFailed, te.To)
	assert.Contains(t, err.Error(), "AVAILABLE -> FAILED")
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusAvailable.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, Status("x").Terminal())
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "AVAILABLE", "FAILED"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, st.String())
	}

	_, err := ParseStatus("available")
	assert.Error(t, err)

	_, err = ParseStatus("")
	assert.Error(t, err)
}
