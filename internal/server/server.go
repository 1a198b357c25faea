// Package server is predictd's HTTP and WebSocket front end. It accepts chat
// messages from an agent framework and exposes the operation catalog and the
// execution ledger.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/predictplugin/internal/crypto"
	"github.com/alanyoungcy/predictplugin/internal/domain"
	"github.com/alanyoungcy/predictplugin/internal/server/handler"
	"github.com/alanyoungcy/predictplugin/internal/server/middleware"
	"github.com/alanyoungcy/predictplugin/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// RateLimit requests per RateWindow per caller; zero disables limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Executions and Audit are nil when the ledger is disabled.
type Handlers struct {
	Health     *handler.HealthHandler
	Messages   *handler.MessageHandler
	Operations *handler.OperationHandler
	Executions *handler.ExecutionHandler
	Audit      *handler.AuditHandler
}

// Deps are the optional collaborators of the middleware chain.
type Deps struct {
	Hub     *ws.Hub
	Limiter domain.RateLimiter
	Webhook *crypto.WebhookAuth
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered and the middleware
// chain applied (CORS, logging, rate limit, auth).
func NewServer(cfg Config, handlers Handlers, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.Handle("POST /api/messages", middleware.Signature(deps.Webhook)(http.HandlerFunc(handlers.Messages.Post)))
	mux.HandleFunc("GET /api/operations", handlers.Operations.List)

	if handlers.Executions != nil {
		mux.HandleFunc("GET /api/executions", handlers.Executions.List)
		mux.HandleFunc("GET /api/executions/{id}", handlers.Executions.Get)
	} else {
		mux.HandleFunc("GET /api/executions", ledgerDisabled)
		mux.HandleFunc("GET /api/executions/{id}", ledgerDisabled)
	}
	if handlers.Audit != nil {
		mux.HandleFunc("GET /api/audit", handlers.Audit.List)
	} else {
		mux.HandleFunc("GET /api/audit", ledgerDisabled)
	}

	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health")(h)
	if deps.Limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(deps.Limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Write-operation messages wait for confirmations.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		handler:    h,
		logger:     logger,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func ledgerDisabled(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte(`{"error":"execution ledger is disabled"}`))
}
