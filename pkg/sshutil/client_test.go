package sshutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "password rejected",
			err:  errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"),
			want: true,
		},
		{
			name: "no methods remain",
			err:  errors.New("ssh: no supported methods remain"),
			want: true,
		},
		{
			name: "permission denied",
			err:  errors.New("permission denied (publickey,password)"),
			want: true,
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 10.0.0.5:22: connect: connection refused"),
			want: false,
		},
		{
			name: "timeout",
			err:  errors.New("dial tcp 10.0.0.5:22: i/o timeout"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAuthError(tt.err))
		})
	}
}

func TestSuggestionForDialError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "refused",
			err:      errors.New("connect: connection refused"),
			contains: "Is SSH running",
		},
		{
			name:     "no route",
			err:      errors.New("connect: no route to host"),
			contains: "network",
		},
		{
			name:     "unreachable",
			err:      errors.New("connect: network is unreachable"),
			contains: "network",
		},
		{
			name:     "timeout",
			err:      errors.New("dial tcp: i/o timeout"),
			contains: "timed out",
		},
		{
			name:     "anything else",
			err:      errors.New("something odd"),
			contains: "reachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, suggestionForDialError(tt.err), tt.contains)
		})
	}
}

func TestResolveDefaults(t *testing.T) {
	// Explicit values always win over ssh_config and the fallbacks.
	creds := resolveDefaults(Credentials{
		Address:  "web.internal",
		Port:     2022,
		Username: "deploy",
		Secret:   "hunter2",
	})
	assert.Equal(t, "deploy", creds.Username)
	assert.Equal(t, 2022, creds.Port)
	assert.Equal(t, "hunter2", creds.Secret)

	// Missing values resolve to something usable, whatever the local
	// ssh_config says.
	creds = resolveDefaults(Credentials{Address: "web.internal"})
	assert.NotEmpty(t, creds.Username)
	assert.Positive(t, creds.Port)
}
