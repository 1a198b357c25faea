package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/predictplugin/internal/crypto"
	mcpserver "github.com/alanyoungcy/predictplugin/internal/mcp"
	"github.com/alanyoungcy/predictplugin/internal/plugin"
	"github.com/alanyoungcy/predictplugin/internal/server"
	"github.com/alanyoungcy/predictplugin/internal/server/handler"
	"github.com/alanyoungcy/predictplugin/internal/server/ws"
)

// guardSweep is how often the in-memory message guard evicts expired ids.
const guardSweep = time.Minute

// ServerMode serves the HTTP API and the chat WebSocket until ctx is
// cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startGuard(ctx, g, deps)

	hub := ws.NewHub(deps.Plugin, deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(deps.Health, a.logger),
		Messages:   handler.NewMessageHandler(deps.Plugin, a.logger),
		Operations: handler.NewOperationHandler(deps.Plugin),
	}
	if deps.ExecutionStore != nil {
		handlers.Executions = handler.NewExecutionHandler(deps.ExecutionStore, a.logger)
	}
	if deps.AuditStore != nil {
		handlers.Audit = handler.NewAuditHandler(deps.AuditStore, a.logger)
	}

	srvDeps := server.Deps{Hub: hub, Limiter: deps.RateLimiter}
	if secret := a.cfg.Server.WebhookSecret; secret != "" {
		srvDeps.Webhook = crypto.NewWebhookAuth(secret, 5*time.Minute)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.Window(),
	}, handlers, srvDeps, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// MCPMode serves the operations as MCP tools on stdio. It returns when the
// client closes the stream.
func (a *App) MCPMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering mcp mode")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	a.startGuard(ctx, g, deps)

	s := mcpserver.New(deps.Plugin, Version, a.logger)
	g.Go(func() error {
		defer cancel()
		return s.ServeStdio()
	})
	return g.Wait()
}

// CLIMode handles chat messages typed on stdin, or the single message given
// with WithMessage, and prints each reply.
func (a *App) CLIMode(ctx context.Context, deps *Dependencies) error {
	session := uuid.NewString()
	if a.message != "" {
		return a.handleLine(ctx, deps.Plugin, session, a.message)
	}

	fmt.Fprintln(a.out, "predictd ready. Type a request, or 'help'. Ctrl-D exits.")
	sc := bufio.NewScanner(a.in)
	for {
		fmt.Fprint(a.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(a.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := a.handleLine(ctx, deps.Plugin, session, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (a *App) handleLine(ctx context.Context, p *plugin.Plugin, session, text string) error {
	msg := plugin.Message{
		ID:     uuid.NewString(),
		UserID: "cli",
		RoomID: session,
		Text:   text,
	}
	_, err := p.Handle(ctx, msg, func(_ context.Context, r plugin.Reply) error {
		fmt.Fprintln(a.out, r.Text)
		if a.cfg.LogLevel == "debug" && len(r.Content) > 0 {
			if data, err := json.MarshalIndent(r.Content, "", "  "); err == nil {
				fmt.Fprintln(a.out, string(data))
			}
		}
		return nil
	})
	return err
}

func (a *App) startGuard(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.MemoryGuard == nil {
		return
	}
	g.Go(func() error {
		deps.MemoryGuard.Run(ctx, guardSweep)
		return nil
	})
	a.logger.DebugContext(ctx, "in-memory message guard running", slog.Duration("sweep", guardSweep))
}
