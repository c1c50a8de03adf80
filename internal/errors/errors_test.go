package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrSSH,
		ErrAuth,
		ErrExec,
		ErrStore,
		ErrHost,
		ErrSession,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	err := New(ErrHost, "Host 'web-1' not found", "Run 'hostscout host list' to see registered hosts")

	require.NotNil(t, err)
	assert.Equal(t, ErrHost, err.Code)
	assert.Equal(t, "Host 'web-1' not found", err.Message)
	assert.Equal(t, "Run 'hostscout host list' to see registered hosts", err.Suggestion)
	assert.Nil(t, err.Cause)
}

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "message only",
			err:      New(ErrSSH, "Can't reach 10.0.0.5:22", ""),
			contains: []string{"✗ Can't reach 10.0.0.5:22"},
		},
		{
			name:     "with suggestion",
			err:      New(ErrConfig, "listen address is empty", "Set 'listen' to an address like ':5000'"),
			contains: []string{"✗ listen address is empty", "Set 'listen'"},
		},
		{
			name:     "with cause and suggestion",
			err:      WrapWithCode(errors.New("dial tcp: connection refused"), ErrSSH, "Can't reach db.internal", "Is SSH running?"),
			contains: []string{"✗ Can't reach db.internal", "connection refused", "Is SSH running?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.err.Error()
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestErrorFormatOrder(t *testing.T) {
	err := WrapWithCode(errors.New("the cause"), ErrStore, "the message", "the fix")
	out := err.Error()

	msgIdx := strings.Index(out, "the message")
	causeIdx := strings.Index(out, "the cause")
	fixIdx := strings.Index(out, "the fix")

	require.True(t, msgIdx >= 0 && causeIdx >= 0 && fixIdx >= 0)
	assert.Less(t, msgIdx, causeIdx, "message should come before cause")
	assert.Less(t, causeIdx, fixIdx, "cause should come before suggestion")
}

func TestWrapDefaultsToSSH(t *testing.T) {
	cause := errors.New("broken pipe")
	err := Wrap(cause, "Failed to open shell stdin")

	assert.Equal(t, ErrSSH, err.Code)
	assert.Equal(t, cause, err.Cause)
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := WrapWithCode(cause, ErrExec, "Command failed", "")

	assert.ErrorIs(t, err, cause)

	var se *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &se))
	assert.Equal(t, ErrExec, se.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrSession, "Session not found", "")

	assert.True(t, IsCode(err, ErrSession))
	assert.False(t, IsCode(err, ErrHost))
	assert.True(t, IsCode(fmt.Errorf("wrapped: %w", err), ErrSession))
	assert.False(t, IsCode(errors.New("plain"), ErrSession))
	assert.False(t, IsCode(nil, ErrSession))
}
