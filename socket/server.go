// Package socket exposes the live-connection server used by phone clients.
// It speaks a small JSON event protocol over websockets: clients announce
// their recipient id with "init", pull their queue with "get_new_messages"
// and answer messages with "send_reaction"; the relay pushes "notify",
// "init" and "new_messages" back.
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hotline/contract"
)

// Inbound event names of the phone client protocol.
const (
	eventInit           = "init"
	eventGetNewMessages = "get_new_messages"
	eventSendReaction   = "send_reaction"
)

type Server struct {
	log        *slog.Logger
	relay      contract.IRelay
	registry   contract.IRegistry
	addr       string
	bufferSize int
	upgrader   websocket.Upgrader
}

func NewServer(log *slog.Logger, relay contract.IRelay, registry contract.IRegistry, addr string, bufferSize int) *Server {
	return &Server{
		log:        log,
		relay:      relay,
		registry:   registry,
		addr:       addr,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Phone clients are not browsers, no Origin to check
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves HTTP until the context is canceled. Implements contract.Worker.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleLiveness)
	mux.HandleFunc("/ws", s.handleSocket)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Socket server listening", "address", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("socket server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "HOTLINE SERVER working")
}

// handleSocket owns one connection for its whole lifetime: upgrade, session
// setup, read loop, and unbind on disconnect.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(s.log, conn, s.bufferSize)
	go sess.writePump()
	s.log.Info("Socket has connected", "session", sess.ID())

	defer func() {
		s.registry.Unbind(sess)
		sess.close()
		s.log.Info("Socket has disconnected", "session", sess.ID())
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.log.Warn("Malformed socket frame", "session", sess.ID(), "error", err)
			continue
		}
		s.dispatch(r.Context(), sess, env)
	}
}

// dispatch recovers every handler error into a log line; nothing a phone
// client sends may take the server down.
func (s *Server) dispatch(ctx context.Context, sess *Session, env envelope) {
	switch env.Event {
	case eventInit:
		s.onInit(sess, env.Data)
	case eventGetNewMessages:
		s.onGetNewMessages(ctx, sess)
	case eventSendReaction:
		s.onSendReaction(ctx, sess, env.Data)
	default:
		s.log.Debug("Unknown socket event", "event", env.Event, "session", sess.ID())
	}
}

func (s *Server) onInit(sess *Session, data json.RawMessage) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.log.Warn("Malformed init payload", "session", sess.ID(), "error", err)
		return
	}

	payload, ok := s.relay.InitData(req.ID)
	if !ok {
		s.log.Warn("Init for unknown recipient", "recipient", req.ID, "session", sess.ID())
		return
	}

	s.registry.Bind(req.ID, sess)
	s.log.Info("Recipient bound", "recipient", req.ID, "session", sess.ID())
	if err := sess.Emit(contract.EventInit, payload); err != nil {
		s.log.Warn("Init push dropped", "recipient", req.ID, "error", err)
	}
}

func (s *Server) onGetNewMessages(ctx context.Context, sess *Session) {
	rec, ok := s.registry.RecipientOf(sess)
	if !ok {
		s.log.Warn("Snapshot request from unbound session", "session", sess.ID())
		return
	}

	snapshot, err := s.relay.Snapshot(ctx, rec.ID)
	if err != nil {
		s.log.Error("Snapshot failed", "recipient", rec.ID, "error", err)
		return
	}
	if err := sess.Emit(contract.EventNewMessages, snapshot); err != nil {
		s.log.Warn("Snapshot push dropped", "recipient", rec.ID, "error", err)
	}
}

func (s *Server) onSendReaction(ctx context.Context, sess *Session, data json.RawMessage) {
	var req struct {
		MessageID int    `json:"message_id"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.log.Warn("Malformed reaction payload", "session", sess.ID(), "error", err)
		return
	}

	rec, ok := s.registry.RecipientOf(sess)
	if !ok {
		s.log.Warn("Reaction from unbound session", "session", sess.ID())
		return
	}
	s.relay.Reply(ctx, rec.ID, req.MessageID, req.Message)
}
