// Package sshutil wraps golang.org/x/crypto/ssh behind small interfaces so
// the collector and terminal multiplexer can be tested without a network.
package sshutil

import (
	"context"
	"time"
)

// Credentials identifies a remote host and how to authenticate to it.
type Credentials struct {
	Address  string // hostname or IP
	Port     int    // 0 means 22 (or the ssh_config port for the host)
	Username string
	Secret   string // password; never logged
}

// Dialer opens authenticated connections to remote hosts.
// The real implementation lives in client.go; sshtest provides a fake.
type Dialer interface {
	// Dial connects with a bounded timeout. Errors carry the AUTH code for
	// credential rejections and the SSH code for transport failures.
	Dial(ctx context.Context, creds Credentials, timeout time.Duration) (Conn, error)
}

// Conn is one authenticated connection to a remote host.
type Conn interface {
	// RunCommand executes a one-shot command and returns its stdout.
	RunCommand(cmd string) (string, error)

	// OpenShell requests an interactive pseudo-terminal channel.
	OpenShell(term string, cols, rows int) (Shell, error)

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Shell is an interactive, resizable, full-duplex byte stream.
//
// Read may return (0, nil) when no output is ready; callers pace their
// retries. It returns an error once the channel is closed or broken.
type Shell interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Resize(cols, rows int) error
	Close() error
}
