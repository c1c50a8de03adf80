// Package events defines the contract the scheduler and the terminal
// multiplexer use to push updates to external subscribers, plus the
// in-process fanout bus the websocket gateway consumes.
package events

import (
	"time"

	"github.com/hostscout/hostscout/internal/registry"
)

// HostUpdate is published after every metrics collection for a host.
// Updates for one host are published in the order they were produced.
type HostUpdate struct {
	HostID    string                   `json:"host_id"`
	Metrics   registry.MetricsSnapshot `json:"metrics"`
	LastCheck time.Time                `json:"last_check"`
}

// Terminal event types.
const (
	TerminalReady  = "terminal_ready"
	TerminalOutput = "terminal_output"
	TerminalError  = "terminal_error"
)

// TerminalEvent is delivered to the one subscriber that owns a session.
type TerminalEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      string `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Publisher pushes events toward external subscribers. Implementations
// must not block the caller indefinitely: the scheduler and the output
// pumps publish from their own loops.
type Publisher interface {
	PublishHostUpdate(update HostUpdate)
	PublishTerminal(subscriber string, event TerminalEvent)
}
