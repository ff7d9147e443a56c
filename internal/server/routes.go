package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/llm"
	"github.com/owenmorgan/calbot/internal/reconciler"
	"github.com/owenmorgan/calbot/internal/stream"
	"github.com/owenmorgan/calbot/internal/version"
)

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.requireSession(s.handleChat))
	mux.HandleFunc("GET /api/events", s.requireSession(s.handleEvents))
	mux.HandleFunc("GET /ws", s.requireSession(s.handleWebSocket))

	mux.HandleFunc("/", handleNotFound)
}

// sessionHandler is a handler that requires a resolved session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess domain.Session)

// requireSession resolves the bearer token and rejects the request
// before any turn work starts when authentication fails. WebSocket
// clients may pass the token as a query parameter since browsers cannot
// set headers on upgrade requests.
func (s *Server) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing credentials"})
			return
		}

		sess, err := s.auth.Lookup(r.Context(), token)
		if err != nil {
			if domain.IsUnauthenticated(err) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid session"})
				return
			}
			s.log.Error().Err(err).Msg("session lookup failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}

		next(w, r, sess)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return tok
	}
	return ""
}

// turnRequest is the chat submission payload: the prior message history
// plus the new user message as its final entry.
type turnRequest struct {
	Messages []llm.Message `json:"messages"`
}

func (tr *turnRequest) validate() string {
	if len(tr.Messages) == 0 {
		return "messages must not be empty"
	}
	last := tr.Messages[len(tr.Messages)-1]
	if last.Role != llm.RoleUser {
		return "last message must be from the user"
	}
	for _, m := range tr.Messages {
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant, llm.RoleTool:
		default:
			return "unsupported message role: " + m.Role
		}
	}
	return ""
}

// handleChat runs one turn and streams its events as SSE frames.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	sw, err := stream.NewSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	loop := s.newLoop()
	if _, err := loop.Run(r.Context(), sess, req.Messages, func(ev stream.Event) {
		sw.Send(ev)
	}); err != nil {
		// The error and done frames are already on the wire; nothing
		// more can be sent on this response.
		s.log.Warn().Err(err).Str("userId", sess.UserID).Msg("turn failed")
	}
}

// eventsResponse is the initial-range fetch result.
type eventsResponse struct {
	Success bool           `json:"success"`
	Events  []domain.Event `json:"events"`
	Error   string         `json:"error,omitempty"`
}

// handleEvents returns the current calendar month for first paint.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	start, end := reconciler.MonthRange(time.Now())
	events, err := s.gateway.List(r.Context(), sess, start, end)
	if err != nil {
		s.log.Warn().Err(err).Str("userId", sess.UserID).Msg("event fetch failed")
		status := http.StatusBadGateway
		if domain.IsUnauthenticated(err) {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, eventsResponse{Error: err.Error()})
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Success: true, Events: events})
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
