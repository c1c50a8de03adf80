package sshtest

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/hostscout/hostscout/internal/errors"
	"github.com/hostscout/hostscout/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creds(address string) sshutil.Credentials {
	return sshutil.Credentials{Address: address, Port: 22, Username: "admin", Secret: "x"}
}

func TestDialUnknownAddressFails(t *testing.T) {
	d := NewDialer()
	_, err := d.Dial(context.Background(), creds("nowhere"), time.Second)
	require.Error(t, err)
	assert.Equal(t, 1, d.Dials())
	assert.Zero(t, d.OpenConns())
}

func TestScriptedResponses(t *testing.T) {
	d := NewDialer()
	d.Script("web.internal", &HostScript{
		Responses: map[string]string{"uptime -p": "up 3 hours\n"},
	})

	conn, err := d.Dial(context.Background(), creds("web.internal"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, d.OpenConns())

	out, err := conn.RunCommand("uptime -p")
	require.NoError(t, err)
	assert.Equal(t, "up 3 hours\n", out)

	// Unscripted commands fail like a missing remote binary.
	_, err = conn.RunCommand("nvidia-smi")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))

	fakeConn := conn.(*Conn)
	assert.Equal(t, []string{"uptime -p", "nvidia-smi"}, fakeConn.Executed())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "close must be idempotent")
	assert.Zero(t, d.OpenConns())
}

func TestCommandErrTakesPrecedence(t *testing.T) {
	d := NewDialer()
	injected := errors.New(errors.ErrExec, "boom", "")
	d.Script("web.internal", &HostScript{
		Responses:   map[string]string{"uptime -p": "up 3 hours\n"},
		CommandErrs: map[string]error{"uptime -p": injected},
	})

	conn, err := d.Dial(context.Background(), creds("web.internal"), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.RunCommand("uptime -p")
	assert.ErrorIs(t, err, injected)
}

func TestDialHangRespectsContext(t *testing.T) {
	d := NewDialer()
	d.Script("slow.internal", &HostScript{DialHang: true})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := d.Dial(ctx, creds("slow.internal"), time.Minute)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDialDelaySucceedsAfterWaiting(t *testing.T) {
	d := NewDialer()
	d.Script("slow.internal", &HostScript{DialDelay: 20 * time.Millisecond})

	start := time.Now()
	conn, err := d.Dial(context.Background(), creds("slow.internal"), time.Minute)
	require.NoError(t, err)
	defer conn.Close()
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	d.Script("slower.internal", &HostScript{DialDelay: time.Minute})
	_, err = d.Dial(ctx, creds("slower.internal"), time.Minute)
	require.Error(t, err)
}

func TestShellFeedAndRead(t *testing.T) {
	d := NewDialer()
	d.Script("web.internal", &HostScript{})

	conn, err := d.Dial(context.Background(), creds("web.internal"), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	shell, err := conn.OpenShell("xterm", 80, 24)
	require.NoError(t, err)

	buf := make([]byte, 64)

	// Idle channel: (0, nil), not an error.
	n, err := shell.Read(buf)
	assert.Zero(t, n)
	assert.NoError(t, err)

	fake := d.LastShell("web.internal")
	require.NotNil(t, fake)
	fake.Feed([]byte("$ "))

	n, err = shell.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "$ ", string(buf[:n]))

	_, err = shell.Write([]byte("ls\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ls\n"), fake.Written())

	require.NoError(t, shell.Close())
	_, err = shell.Read(buf)
	assert.Equal(t, io.EOF, err)
	_, err = shell.Write([]byte("x"))
	assert.Error(t, err)
}
