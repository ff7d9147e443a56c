package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/stream"
)

// wsConn serializes writes to one WebSocket client. Turn events and
// control frames may race otherwise.
type wsConn struct {
	mu   sync.Mutex
	sock *websocket.Conn
}

func (c *wsConn) send(ev stream.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteJSON(ev)
}

// handleWebSocket serves chat turns over a persistent socket. Each
// inbound frame is a turnRequest; the reply is the same event sequence
// the SSE endpoint produces, framed as JSON messages.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer sock.Close()

	conn := &wsConn{sock: sock}
	s.log.Info().Str("userId", sess.UserID).Msg("websocket client connected")

	for {
		var req turnRequest
		if err := sock.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		if msg := req.validate(); msg != "" {
			conn.send(stream.ErrorEvent(msg))
			conn.send(stream.Done())
			continue
		}

		s.runSocketTurn(r.Context(), sess, conn, req)
	}
}

// runSocketTurn executes one turn, dropping the connection's remaining
// frames silently if a write fails mid-turn (same policy as SSE).
func (s *Server) runSocketTurn(ctx context.Context, sess domain.Session, conn *wsConn, req turnRequest) {
	var failed bool
	sink := func(ev stream.Event) {
		if failed {
			return
		}
		if err := conn.send(ev); err != nil {
			failed = true
		}
	}

	loop := s.newLoop()
	if _, err := loop.Run(ctx, sess, req.Messages, sink); err != nil {
		s.log.Warn().Err(err).Str("userId", sess.UserID).Msg("websocket turn failed")
	}
}
