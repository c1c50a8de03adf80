// Package terminal multiplexes interactive shell sessions. Each session
// owns one SSH connection and one pseudo-terminal channel, pumped by a
// dedicated goroutine that is the sole owner of teardown: every exit
// path, subscriber-initiated or channel failure, funnels through the
// pump releasing the connection and unregistering the session.
package terminal

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hostscout/hostscout/internal/errors"
	"github.com/hostscout/hostscout/internal/events"
	"github.com/hostscout/hostscout/internal/logger"
	"github.com/hostscout/hostscout/internal/registry"
	"github.com/hostscout/hostscout/pkg/sshutil"
)

// State is a session's lifecycle position.
type State string

const (
	StateOpening State = "opening"
	StateActive  State = "active"
	StateClosing State = "closing"
	StateClosed  State = "closed"
)

// Options tunes session behavior.
type Options struct {
	// DialTimeout bounds the SSH connect when opening a session.
	DialTimeout time.Duration

	// PumpInterval paces the output pump when the channel is quiet.
	// Cancellation is observed within one interval.
	PumpInterval time.Duration

	// Term, Cols, Rows are the initial pseudo-terminal geometry.
	Term string
	Cols int
	Rows int
}

// Manager tracks the live session set.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	reg    *registry.Registry
	dialer sshutil.Dialer
	pub    events.Publisher
	log    logger.Logger
	opts   Options
}

// session holds one connection/channel pair. The handles are touched
// only by Write/Resize callers and the one pump goroutine that owns it.
type session struct {
	id         string
	hostID     string
	subscriber string

	conn  sshutil.Conn
	shell sshutil.Shell

	done      chan struct{}
	closeOnce sync.Once

	writeMu sync.Mutex // serializes Write so concurrent callers never tear a stream

	stateMu sync.Mutex
	state   State
}

func (s *session) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

func (s *session) getState() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// beginClose requests teardown exactly once. Closing the shell unblocks
// a pump stuck in a blocking read; closing done wakes a pump that is
// pacing on a quiet channel.
func (s *session) beginClose() {
	s.closeOnce.Do(func() {
		s.setState(StateClosing)
		close(s.done)
		_ = s.shell.Close()
	})
}

// NewManager creates an empty session manager.
func NewManager(reg *registry.Registry, dialer sshutil.Dialer, pub events.Publisher,
	opts Options, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Noop()
	}
	if opts.Term == "" {
		opts.Term = "xterm"
	}
	if opts.Cols == 0 {
		opts.Cols = 80
	}
	if opts.Rows == 0 {
		opts.Rows = 24
	}
	if opts.PumpInterval == 0 {
		opts.PumpInterval = 10 * time.Millisecond
	}
	return &Manager{
		sessions: make(map[string]*session),
		reg:      reg,
		dialer:   dialer,
		pub:      pub,
		log:      log,
		opts:     opts,
	}
}

// Open establishes a session for subscriber on the given host. On any
// failure no session is registered and a terminal_error event is
// delivered to the subscriber. On success the session is Active, a
// terminal_ready event is delivered, and its pump is running.
func (m *Manager) Open(ctx context.Context, hostID, subscriber string) (string, error) {
	host, ok := m.reg.Get(hostID)
	if !ok {
		err := errors.New(errors.ErrHost,
			fmt.Sprintf("Host %q not found", hostID), "")
		m.publishError(subscriber, "", "host not found")
		return "", err
	}

	m.log.Info("opening terminal for %s (%s)", host.Name, host.Address)

	conn, err := m.dialer.Dial(ctx, sshutil.Credentials{
		Address:  host.Address,
		Port:     host.Port,
		Username: host.Username,
		Secret:   host.Secret,
	}, m.opts.DialTimeout)
	if err != nil {
		m.publishError(subscriber, "", connectCause(err))
		return "", err
	}

	shell, err := conn.OpenShell(m.opts.Term, m.opts.Cols, m.opts.Rows)
	if err != nil {
		// Opening -> Closed directly: nothing was registered.
		_ = conn.Close()
		m.publishError(subscriber, "", connectCause(err))
		return "", err
	}

	s := &session{
		id:         uuid.NewString(),
		hostID:     hostID,
		subscriber: subscriber,
		conn:       conn,
		shell:      shell,
		done:       make(chan struct{}),
		state:      StateActive,
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.pub.PublishTerminal(subscriber, events.TerminalEvent{
		Type:      events.TerminalReady,
		SessionID: s.id,
	})
	m.log.Info("terminal ready for %s, session %s", host.Address, s.id)

	go m.pump(s)
	return s.id, nil
}

// pump relays channel output to the subscriber until the session is
// closed or the channel fails. It is the single cleanup path: on exit
// it always releases the connection and unregisters the session.
func (m *Manager) pump(s *session) {
	defer m.finish(s)

	buf := make([]byte, 4096)
	for {
		n, err := s.shell.Read(buf)
		if n > 0 {
			// Replace invalid byte sequences; decoding is never fatal.
			data := strings.ToValidUTF8(string(buf[:n]), "�")
			m.pub.PublishTerminal(s.subscriber, events.TerminalEvent{
				Type:      events.TerminalOutput,
				SessionID: s.id,
				Data:      data,
			})
		}
		if err != nil {
			if s.getState() != StateClosing {
				m.log.Error("terminal read error on %s: %v", s.id, err)
				m.publishError(s.subscriber, s.id, "terminal channel failed")
			}
			return
		}
		if n > 0 {
			select {
			case <-s.done:
				return
			default:
			}
			continue
		}
		// Quiet channel: pace the next poll, watching for cancellation.
		select {
		case <-s.done:
			return
		case <-time.After(m.opts.PumpInterval):
		}
	}
}

// finish releases the session's resources and removes it from the live
// set. Reached only from the pump.
func (m *Manager) finish(s *session) {
	s.beginClose()
	_ = s.conn.Close()

	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()

	s.setState(StateClosed)
	m.log.Info("terminal session %s ended", s.id)
}

// Write forwards raw bytes to the session's channel. Writes on the same
// session are serialized. Input for an unknown or already-closing
// session is reported, never fatal.
func (m *Manager) Write(sessionID string, data []byte) error {
	s, ok := m.lookup(sessionID)
	if !ok {
		return errors.New(errors.ErrSession,
			fmt.Sprintf("Session %q not found", sessionID), "")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.shell.Write(data); err != nil {
		return errors.WrapWithCode(err, errors.ErrSession,
			"Failed to write to terminal", "")
	}
	return nil
}

// Resize adjusts the pseudo-terminal geometry. Best-effort: a failed
// resize never terminates the session.
func (m *Manager) Resize(sessionID string, cols, rows int) error {
	s, ok := m.lookup(sessionID)
	if !ok {
		return errors.New(errors.ErrSession,
			fmt.Sprintf("Session %q not found", sessionID), "")
	}
	if err := s.shell.Resize(cols, rows); err != nil {
		m.log.Debug("resize on %s ignored: %v", sessionID, err)
	}
	return nil
}

// Close requests teardown of one session. The owning pump observes the
// request within one poll interval and performs the actual cleanup.
func (m *Manager) Close(sessionID string) error {
	s, ok := m.lookup(sessionID)
	if !ok {
		return errors.New(errors.ErrSession,
			fmt.Sprintf("Session %q not found", sessionID), "")
	}
	s.beginClose()
	return nil
}

// CloseSubscriber tears down every session owned by subscriber. Called
// on disconnect; a subscriber may own zero or more sessions.
func (m *Manager) CloseSubscriber(subscriber string) {
	m.mu.Lock()
	var owned []*session
	for _, s := range m.sessions {
		if s.subscriber == subscriber {
			owned = append(owned, s)
		}
	}
	m.mu.Unlock()

	for _, s := range owned {
		s.beginClose()
	}
}

// SessionState reports the lifecycle state of a session. Closed
// sessions are unregistered, so a missing id reads as Closed.
func (m *Manager) SessionState(sessionID string) State {
	s, ok := m.lookup(sessionID)
	if !ok {
		return StateClosed
	}
	return s.getState()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(sessionID string) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

func (m *Manager) publishError(subscriber, sessionID, cause string) {
	m.pub.PublishTerminal(subscriber, events.TerminalEvent{
		Type:      events.TerminalError,
		SessionID: sessionID,
		Error:     cause,
	})
}

// connectCause extracts the short human-readable cause from a dial or
// channel failure for the terminal_error event.
func connectCause(err error) string {
	var se *errors.Error
	if stderrors.As(err, &se) {
		if se.Code == errors.ErrAuth {
			return "authentication failed: " + se.Message
		}
		return se.Message
	}
	return err.Error()
}
