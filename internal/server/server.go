// Package server exposes the chat turn endpoint and the calendar view
// endpoints over HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/owenmorgan/calbot/internal/agent"
	"github.com/owenmorgan/calbot/internal/auth"
	"github.com/owenmorgan/calbot/internal/calendar"
	"github.com/owenmorgan/calbot/internal/config"
	"github.com/owenmorgan/calbot/internal/llm"
	"github.com/owenmorgan/calbot/internal/logging"
	"github.com/owenmorgan/calbot/internal/tools"
	"github.com/owenmorgan/calbot/internal/version"
)

// Server is the calbot HTTP server.
type Server struct {
	cfg      config.ServerConfig
	loopCfg  agent.LoopConfig
	auth     auth.Store
	gateway  calendar.Gateway
	client   llm.Client
	registry *tools.Registry
	log      *logging.Logger

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a server. Each chat request gets its own turn loop, so
// concurrent turns from different clients never share state.
func New(
	cfg config.ServerConfig,
	loopCfg agent.LoopConfig,
	authStore auth.Store,
	gateway calendar.Gateway,
	client llm.Client,
	registry *tools.Registry,
	log *logging.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		loopCfg:  loopCfg,
		auth:     authStore,
		gateway:  gateway,
		client:   client,
		registry: registry,
		log:      log.Sub("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.AllowedOrigins),
		},
	}
}

// checkWebSocketOrigin validates WebSocket Origin headers. Requests
// without an Origin (non-browser clients) are always allowed.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening. It blocks until the context is cancelled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	handler := withMiddleware(mux, s.log, s.cfg.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: chat responses are long-lived event streams
		// that outlive any fixed write deadline.
		IdleTimeout: 120 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("version", version.Version).
		Msg("server ready")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// newLoop creates a fresh turn loop for one request.
func (s *Server) newLoop() *agent.Loop {
	return agent.NewLoop(s.loopCfg, s.client, s.registry, s.log)
}
