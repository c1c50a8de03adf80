// Package sshtest provides an in-memory Dialer for testing SSH-dependent
// code without a network. Hosts are scripted per address: canned command
// output, dial failures, dial hangs, and a feedable interactive shell.
package sshtest

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hostscout/hostscout/internal/errors"
	"github.com/hostscout/hostscout/pkg/sshutil"
)

// HostScript describes how the fake behaves for one address.
type HostScript struct {
	// DialErr is returned by Dial immediately when set.
	DialErr error

	// DialHang makes Dial block until the context or timeout expires,
	// then fail like a connect timeout.
	DialHang bool

	// DialDelay makes Dial sleep before succeeding. A context that
	// expires first fails the dial like a connect timeout.
	DialDelay time.Duration

	// Responses maps exact command strings to stdout. A command with no
	// entry fails like a missing remote binary.
	Responses map[string]string

	// CommandErrs maps exact command strings to injected failures,
	// taking precedence over Responses.
	CommandErrs map[string]error

	// ShellErr fails OpenShell when set.
	ShellErr error
}

// Dialer is a fake sshutil.Dialer keyed by credential address.
type Dialer struct {
	mu      sync.Mutex
	scripts map[string]*HostScript
	shells  map[string]*Shell // last shell opened per address
	open    int
	dials   int
}

// NewDialer creates an empty fake dialer. Unknown addresses fail to dial.
func NewDialer() *Dialer {
	return &Dialer{
		scripts: make(map[string]*HostScript),
		shells:  make(map[string]*Shell),
	}
}

// Script registers behavior for an address and returns the script for
// further tweaking.
func (d *Dialer) Script(address string, script *HostScript) *HostScript {
	d.mu.Lock()
	defer d.mu.Unlock()
	if script == nil {
		script = &HostScript{}
	}
	if script.Responses == nil {
		script.Responses = make(map[string]string)
	}
	if script.CommandErrs == nil {
		script.CommandErrs = make(map[string]error)
	}
	d.scripts[address] = script
	return script
}

// OpenConns returns the number of connections dialed and not yet closed.
func (d *Dialer) OpenConns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Dials returns how many times Dial was invoked.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// LastShell returns the most recent shell opened for an address, or nil.
func (d *Dialer) LastShell(address string) *Shell {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shells[address]
}

// Dial implements sshutil.Dialer.
func (d *Dialer) Dial(ctx context.Context, creds sshutil.Credentials, timeout time.Duration) (sshutil.Conn, error) {
	d.mu.Lock()
	d.dials++
	script, ok := d.scripts[creds.Address]
	d.mu.Unlock()

	if !ok {
		return nil, errors.New(errors.ErrSSH,
			fmt.Sprintf("Can't reach %s", creds.Address),
			"no script registered for this address")
	}
	if script.DialHang {
		select {
		case <-ctx.Done():
		case <-time.After(timeout):
		}
		return nil, errors.New(errors.ErrSSH,
			fmt.Sprintf("Can't reach %s", creds.Address),
			"Connection timed out.")
	}
	if script.DialErr != nil {
		return nil, script.DialErr
	}
	if script.DialDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, errors.New(errors.ErrSSH,
				fmt.Sprintf("Can't reach %s", creds.Address),
				"Connection timed out.")
		case <-time.After(script.DialDelay):
		}
	}

	d.mu.Lock()
	d.open++
	d.mu.Unlock()

	return &Conn{dialer: d, address: creds.Address, script: script}, nil
}

// Conn is a fake sshutil.Conn.
type Conn struct {
	dialer    *Dialer
	address   string
	script    *HostScript
	mu        sync.Mutex
	closed    bool
	executed  []string
	closeOnce sync.Once
}

// Executed returns the commands run on this connection, in order.
func (c *Conn) Executed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.executed))
	copy(out, c.executed)
	return out
}

// RunCommand implements sshutil.Conn.
func (c *Conn) RunCommand(cmd string) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", stderrors.New("connection closed")
	}
	c.executed = append(c.executed, cmd)
	c.mu.Unlock()

	if err, ok := c.script.CommandErrs[cmd]; ok {
		return "", err
	}
	if out, ok := c.script.Responses[cmd]; ok {
		return out, nil
	}
	return "", errors.New(errors.ErrExec,
		fmt.Sprintf("Command exited with status 127: %s", cmd), "")
}

// OpenShell implements sshutil.Conn.
func (c *Conn) OpenShell(term string, cols, rows int) (sshutil.Shell, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, stderrors.New("connection closed")
	}
	if c.script.ShellErr != nil {
		return nil, c.script.ShellErr
	}

	sh := &Shell{cols: cols, rows: rows}
	c.dialer.mu.Lock()
	c.dialer.shells[c.address] = sh
	c.dialer.mu.Unlock()
	return sh, nil
}

// Close implements sshutil.Conn. Idempotent, like the real client.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.dialer.mu.Lock()
		c.dialer.open--
		c.dialer.mu.Unlock()
	})
	return nil
}

// Shell is a fake pseudo-terminal channel. Tests feed output with Feed
// and inspect input with Written.
type Shell struct {
	mu      sync.Mutex
	out     bytes.Buffer
	in      bytes.Buffer
	resizes [][2]int
	closed  bool
	cols    int
	rows    int
}

// Feed appends bytes for the pump to read.
func (s *Shell) Feed(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Write(p)
}

// Written returns everything written to the shell so far.
func (s *Shell) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.in.Bytes()...)
}

// Resizes returns the (cols, rows) pairs requested so far.
func (s *Shell) Resizes() [][2]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][2]int, len(s.resizes))
	copy(out, s.resizes)
	return out
}

// Closed reports whether the shell has been closed.
func (s *Shell) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Read implements sshutil.Shell: (0, nil) when no output is pending,
// mirroring a recv_ready-style channel, and io.EOF once closed.
func (s *Shell) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out.Len() == 0 {
		if s.closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	return s.out.Read(p)
}

func (s *Shell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, stderrors.New("shell closed")
	}
	return s.in.Write(p)
}

func (s *Shell) Resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return stderrors.New("shell closed")
	}
	s.resizes = append(s.resizes, [2]int{cols, rows})
	s.cols, s.rows = cols, rows
	return nil
}

func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
