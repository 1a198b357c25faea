// Command predictd runs the prediction-market chat plugin. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and starts the configured front end (server, mcp or cli).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/predictplugin/internal/app"
	"github.com/alanyoungcy/predictplugin/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override the configured mode (server, mcp, cli)")
	message := flag.String("message", "", "cli mode: handle this one message and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *message != "" && cfg.Mode != "cli" {
		cfg.Mode = "cli"
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("predictd starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
		slog.String("version", app.Version),
	)
	logger.Debug("configuration loaded", slog.Any("config", cfg))

	var opts []app.Option
	if *message != "" {
		opts = append(opts, app.WithMessage(*message))
	}
	application := app.New(cfg, logger, opts...)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			application.Close()
			os.Exit(1)
		}
	}

	logger.Info("predictd stopped")
}

// newLogger writes JSON logs at the configured level. stdout belongs to the
// protocol in mcp mode and to replies in cli mode, so logs go to stderr
// there.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stdout
	if m := strings.ToLower(cfg.Mode); m == "mcp" || m == "cli" {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
