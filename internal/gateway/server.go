// Package gateway exposes the deskflow HTTP API and the engagement
// websocket feed.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/deskflow/internal/config"
	"github.com/soyeahso/deskflow/internal/delivery"
	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/logging"
	"github.com/soyeahso/deskflow/internal/orchestrator"
	"github.com/soyeahso/deskflow/internal/version"
)

// EscalationQueue is the support-queue side of the escalation store.
type EscalationQueue interface {
	List(ctx context.Context, status string, priority domain.Priority, limit int) ([]domain.EscalationRecord, error)
	UpdateStatus(ctx context.Context, id, status, assignedAgent, notes string) (domain.EscalationRecord, error)
}

// ProfileStore updates stored user preferences.
type ProfileStore interface {
	UpdatePreferences(ctx context.Context, userID string, prefs map[string]string) (*domain.UserProfile, error)
}

// Server is the deskflow HTTP + WebSocket server.
type Server struct {
	cfg  config.Config
	orch *orchestrator.Orchestrator
	log  *logging.Logger

	escalations EscalationQueue
	profiles    ProfileStore
	feed        *delivery.Broadcaster

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithEscalations wires the escalation queue endpoints.
func WithEscalations(q EscalationQueue) ServerOption {
	return func(s *Server) { s.escalations = q }
}

// WithProfiles wires the preference endpoints.
func WithProfiles(p ProfileStore) ServerOption {
	return func(s *Server) { s.profiles = p }
}

// WithFeed wires the engagement websocket feed.
func WithFeed(b *delivery.Broadcaster) ServerOption {
	return func(s *Server) { s.feed = b }
}

// New creates a new gateway server.
func New(cfg config.Config, orch *orchestrator.Orchestrator, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:  cfg,
		orch: orch,
		log:  log.Sub("gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Non-browser clients send no Origin header.
				origin := r.Header.Get("Origin")
				return origin == "" || isOriginAllowed(origin, cfg.Server.AllowedOrigins)
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening. It blocks until the context is cancelled or
// an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Server)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := withMiddleware(mux, s.log)
	handler = s.authMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.Server.AuthToken == "" {
		s.log.Warn().Msg("auth token not configured, API is unauthenticated")
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Server.Bind).
		Str("version", version.Version).
		Msg("gateway server ready")

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}
