package sshutil

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hostscout/hostscout/internal/errors"
	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
)

// NetDialer dials hosts over TCP with password authentication.
// Host keys are accepted on first contact: the fleet is operator-curated
// and records carry explicit credentials, mirroring an auto-add policy.
type NetDialer struct{}

// NewDialer returns the production Dialer.
func NewDialer() *NetDialer {
	return &NetDialer{}
}

// Dial connects to the host described by creds within timeout.
func (d *NetDialer) Dial(ctx context.Context, creds Credentials, timeout time.Duration) (Conn, error) {
	creds = resolveDefaults(creds)
	address := net.JoinHostPort(creds.Address, strconv.Itoa(creds.Port))

	cfg := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Secret),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // auto-add policy, see type doc
		Timeout:         timeout,
	}

	nd := net.Dialer{Timeout: timeout}
	tcp, err := nd.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach %s", address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcp, address, cfg)
	if err != nil {
		_ = tcp.Close()
		if isAuthError(err) {
			return nil, errors.WrapWithCode(err, errors.ErrAuth,
				fmt.Sprintf("Authentication failed for %s@%s", creds.Username, address),
				"Check the username and secret stored for this host")
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with %s didn't go through", address),
			"Try connecting manually: ssh "+creds.Username+"@"+creds.Address)
	}

	return &clientConn{
		client:  ssh.NewClient(sshConn, chans, reqs),
		address: address,
	}, nil
}

// resolveDefaults fills missing user/port from ~/.ssh/config, then falls
// back to root/22 the way the original records default.
func resolveDefaults(creds Credentials) Credentials {
	if creds.Username == "" {
		if user := ssh_config.Get(creds.Address, "User"); user != "" {
			creds.Username = user
		} else {
			creds.Username = "root"
		}
	}
	if creds.Port == 0 {
		if port := ssh_config.Get(creds.Address, "Port"); port != "" {
			if p, err := strconv.Atoi(port); err == nil && p > 0 {
				creds.Port = p
			}
		}
		if creds.Port == 0 {
			creds.Port = 22
		}
	}
	return creds
}

// isAuthError reports whether an SSH handshake failure was a credential
// rejection rather than a transport problem.
func isAuthError(err error) bool {
	s := err.Error()
	return strings.Contains(s, "unable to authenticate") ||
		strings.Contains(s, "no supported methods remain") ||
		strings.Contains(s, "permission denied")
}

func suggestionForDialError(err error) string {
	s := err.Error()
	if strings.Contains(s, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(s, "no route to host") || strings.Contains(s, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(s, "timeout") || strings.Contains(s, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

// clientConn wraps an *ssh.Client as a Conn.
type clientConn struct {
	client    *ssh.Client
	address   string
	closeOnce sync.Once
	closeErr  error
}

func (c *clientConn) RunCommand(cmd string) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	out, err := session.Output(cmd)
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			// Command ran but exited non-zero; callers treat the output
			// as unusable for that field.
			return string(out), errors.WrapWithCode(exitErr, errors.ErrExec,
				fmt.Sprintf("Command exited with status %d: %s", exitErr.ExitStatus(), cmd), "")
		}
		return "", errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"Check if the command exists on the remote host.")
	}
	return string(out), nil
}

func (c *clientConn) OpenShell(term string, cols, rows int) (Shell, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(term, rows, cols, modes); err != nil {
		_ = session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to allocate PTY",
			"The remote host may not support pseudo-terminals.")
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		_ = session.Close()
		return nil, errors.Wrap(err, "Failed to open shell stdin")
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, errors.Wrap(err, "Failed to open shell stdout")
	}
	// With a PTY the remote merges stderr into the terminal stream.
	session.Stderr = io.Discard

	if err := session.Shell(); err != nil {
		_ = session.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to start shell",
			"Check if your user has shell access on the remote host.")
	}

	return &shellChannel{session: session, stdin: stdin, stdout: stdout}, nil
}

func (c *clientConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.client.Close()
	})
	return c.closeErr
}

// shellChannel adapts an *ssh.Session with a PTY to the Shell interface.
type shellChannel struct {
	session   *ssh.Session
	stdin     io.WriteCloser
	stdout    io.Reader
	closeOnce sync.Once
}

// Read blocks until output arrives or the channel closes.
// Closing the shell or its connection unblocks it with an error.
func (s *shellChannel) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *shellChannel) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

func (s *shellChannel) Resize(cols, rows int) error {
	return s.session.WindowChange(rows, cols)
}

func (s *shellChannel) Close() error {
	s.closeOnce.Do(func() {
		_ = s.stdin.Close()
		_ = s.session.Close()
	})
	return nil
}
