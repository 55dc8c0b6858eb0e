// Package app provides the top-level application lifecycle management for the
// copy-trade executor. It wires together all dependencies (signal store,
// exchange client, notifier) and runs the poll loop until cancellation.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hlcopy/hlcopybot/internal/config"
	"github.com/hlcopy/hlcopybot/internal/executor"
	"github.com/hlcopy/hlcopybot/internal/metrics"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the executor
// loop (and the metrics listener when enabled), and blocks until the context
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("wallet", a.cfg.Hyperliquid.WalletAddress),
		slog.Duration("poll_interval", a.cfg.Executor.PollInterval.Duration),
		slog.Float64("size_percent", a.cfg.Sizing.SizePercent),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	engine := executor.NewEngine(
		deps.SignalStore,
		deps.Account,
		deps.Submitter,
		deps.Notifier,
		a.cfg.Hyperliquid.WalletAddress,
		a.cfg.Sizing.SizePercent,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.RunLoop(ctx, a.cfg.Executor.PollInterval.Duration)
	})

	if a.cfg.Metrics.Enabled {
		g.Go(func() error {
			a.logger.InfoContext(ctx, "metrics listener starting",
				slog.Int("port", a.cfg.Metrics.Port),
			)
			return metrics.Serve(ctx, a.cfg.Metrics.Port)
		})
	}

	return g.Wait()
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
