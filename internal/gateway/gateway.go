// Package gateway exposes the monitoring and terminal streams over
// websockets plus a small JSON API for the host inventory.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hostscout/hostscout/internal/events"
	"github.com/hostscout/hostscout/internal/logger"
	"github.com/hostscout/hostscout/internal/registry"
	"github.com/hostscout/hostscout/internal/scheduler"
	"github.com/hostscout/hostscout/internal/terminal"
)

const writeWait = 10 * time.Second

// Server wires websocket subscribers to the event bus and the session
// manager.
type Server struct {
	upgrader websocket.Upgrader
	bus      *events.Bus
	manager  *terminal.Manager
	sched    *scheduler.Scheduler
	reg      *registry.Registry
	log      logger.Logger
}

// NewServer creates a Server around the shared components.
func NewServer(bus *events.Bus, manager *terminal.Manager, sched *scheduler.Scheduler,
	reg *registry.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from the UI origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		bus:     bus,
		manager: manager,
		sched:   sched,
		reg:     reg,
		log:     log,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/hosts", s.handleHosts)
	mux.HandleFunc("GET /ws/monitor", s.handleMonitor)
	mux.HandleFunc("GET /ws/terminal", s.handleTerminal)
	return mux
}

// handleHosts lists the inventory with secrets redacted.
func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.reg.RedactedList()); err != nil {
		s.log.Error("failed to encode host list: %v", err)
	}
}

// monitorFrame is the wire shape of a host metrics push.
type monitorFrame struct {
	Type      string                   `json:"type"`
	HostID    string                   `json:"host_id"`
	Metrics   registry.MetricsSnapshot `json:"metrics"`
	LastCheck string                   `json:"last_check"`
}

// handleMonitor streams host metric updates until the client leaves.
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("monitor upgrade failed: %v", err)
		return
	}

	id := uuid.NewString()
	updates := s.bus.SubscribeMonitor(id)
	s.log.Debug("monitor client %s connected", id)

	// Single writer: the websocket write side is not safe for
	// concurrent use, so all frames leave through this goroutine.
	go func() {
		for u := range updates {
			frame := monitorFrame{
				Type:      "host_update",
				HostID:    u.HostID,
				Metrics:   u.Metrics,
				LastCheck: u.LastCheck.Format(time.RFC3339),
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	// Drain the read side to learn about disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.bus.UnsubscribeMonitor(id)
	conn.Close()
	s.log.Debug("monitor client %s disconnected", id)
}

// terminalRequest is the client-to-server frame on the terminal socket.
type terminalRequest struct {
	Type      string `json:"type"`
	HostID    string `json:"host_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Data      string `json:"data,omitempty"`
	Cols      int    `json:"cols,omitempty"`
	Rows      int    `json:"rows,omitempty"`
}

// handleTerminal serves one terminal subscriber. The subscriber may
// open any number of sessions; all of them are torn down when the
// socket closes.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("terminal upgrade failed: %v", err)
		return
	}

	subscriber := uuid.NewString()
	eventsCh := s.bus.SubscribeTerminal(subscriber)
	s.log.Debug("terminal client %s connected", subscriber)

	go func() {
		for ev := range eventsCh {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}()

	// Opens in flight when the socket drops must finish registering
	// before the sweep below, or their sessions would outlive the
	// subscriber.
	var opens sync.WaitGroup

	for {
		var req terminalRequest
		if err := conn.ReadJSON(&req); err != nil {
			break
		}
		s.dispatch(r.Context(), subscriber, &opens, req)
	}

	// Disconnect sweeps every session this subscriber owns.
	opens.Wait()
	s.manager.CloseSubscriber(subscriber)
	s.bus.UnsubscribeTerminal(subscriber)
	conn.Close()
	s.log.Debug("terminal client %s disconnected", subscriber)
}

func (s *Server) dispatch(ctx context.Context, subscriber string, opens *sync.WaitGroup, req terminalRequest) {
	switch req.Type {
	case "open":
		// Opening dials SSH and can take seconds; keep the read
		// loop responsive for the client's other sessions.
		opens.Add(1)
		go func() {
			defer opens.Done()
			if _, err := s.manager.Open(context.WithoutCancel(ctx), req.HostID, subscriber); err != nil {
				s.log.Error("open terminal on %s failed: %v", req.HostID, err)
			}
		}()
	case "input":
		if err := s.manager.Write(req.SessionID, []byte(req.Data)); err != nil {
			s.bus.PublishTerminal(subscriber, events.TerminalEvent{
				Type:      events.TerminalError,
				SessionID: req.SessionID,
				Error:     "session not available",
			})
		}
	case "resize":
		_ = s.manager.Resize(req.SessionID, req.Cols, req.Rows)
	case "close":
		_ = s.manager.Close(req.SessionID)
	case "check":
		// Ad-hoc refresh request from the UI.
		s.sched.CheckSoon(context.WithoutCancel(ctx), req.HostID)
	default:
		s.log.Debug("terminal client %s sent unknown frame %q", subscriber, req.Type)
	}
}
