// Package app provides the top-level lifecycle for predictd. It wires the
// chain gateway, the message pipeline and the optional backends (Redis,
// Postgres, S3, notifications) and runs the configured front end.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alanyoungcy/predictplugin/internal/config"
)

// Version is reported by the MCP server and the status frame.
var Version = "dev"

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()

	// CLI mode I/O. message, when set, is handled once instead of reading
	// lines from in.
	message string
	in      io.Reader
	out     io.Writer
}

// Option customises an App.
type Option func(*App)

// WithMessage makes CLI mode handle a single message and exit.
func WithMessage(text string) Option {
	return func(a *App) { a.message = text }
}

// WithIO replaces stdin and stdout for CLI mode.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.in, a.out = in, out }
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		in:     os.Stdin,
		out:    os.Stdout,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run wires all dependencies, starts the configured mode and blocks until it
// finishes or ctx is cancelled. Resources are released by Close.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "server":
		return a.ServerMode(ctx, deps)
	case "mcp":
		return a.MCPMode(ctx, deps)
	case "cli":
		return a.CLIMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
