package socket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hotline/errors"
)

// envelope is the JSON frame exchanged with phone clients, both directions:
// {"event": "...", "data": {...}}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Session wraps one live websocket connection. All writes go through a
// buffered channel drained by a single writer goroutine, so Emit never blocks
// the routing engine: when the buffer is full the event is dropped and
// ErrSessionBusy returned for the caller to log.
type Session struct {
	id   string
	conn *websocket.Conn
	log  *slog.Logger
	send chan outbound
	done chan struct{}
	once sync.Once
}

func newSession(log *slog.Logger, conn *websocket.Conn, bufferSize int) *Session {
	return &Session{
		id:   uuid.NewString(),
		conn: conn,
		log:  log,
		send: make(chan outbound, bufferSize),
		done: make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Emit queues an event for delivery. Fire-and-forget.
func (s *Session) Emit(event string, payload any) error {
	select {
	case <-s.done:
		return errors.ErrSessionBusy
	case s.send <- outbound{Event: event, Data: payload}:
		return nil
	default:
		return errors.ErrSessionBusy
	}
}

// writePump serializes all outbound frames onto the connection. It exits when
// the session is closed or the connection errors out.
func (s *Session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			if err := s.conn.WriteJSON(msg); err != nil {
				s.log.Debug("Session write failed", "session", s.id, "error", err)
				s.close()
				return
			}
		}
	}
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}
