// Package app initializes and orchestrates the main components of the cost
// engine: the HTTP server, the worker pool and the backing stores.
package app

import (
	"context"
	"log/slog"

	"github.com/polpa/costengine/internal/config"
	"github.com/polpa/costengine/internal/queue"
	"github.com/polpa/costengine/internal/server"
	"github.com/polpa/costengine/internal/storage"
	"github.com/polpa/costengine/internal/workers"
)

// App holds the main application components. Store and Queue are exported
// for the administrative CLI.
type App struct {
	Store storage.Store
	Queue *queue.Manager

	ctx    context.Context
	cfg    *config.Config
	server *server.Server
	pool   *workers.Pool
	cache  *storage.Cache
	logger *slog.Logger
}

// NewApp assembles the application from its already-wired components.
func NewApp(ctx context.Context, cfg *config.Config, srv *server.Server, pool *workers.Pool,
	store storage.Store, q *queue.Manager, cache *storage.Cache, logger *slog.Logger) *App {
	return &App{
		Store:  store,
		Queue:  q,
		ctx:    ctx,
		cfg:    cfg,
		server: srv,
		pool:   pool,
		cache:  cache,
		logger: logger,
	}
}

// Start launches the worker pool (queued mode only) and runs the HTTP
// server, blocking until shutdown.
func (a *App) Start() error {
	a.logger.Info("starting cost engine",
		"server_port", a.cfg.ServerPort,
		"dispatch_mode", a.cfg.DispatchMode,
		"workers", a.cfg.Queue.Workers)

	if a.cfg.DispatchMode == config.DispatchModeQueued {
		a.pool.Start(a.ctx)
	}

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts the application down cleanly: the server first so no new work
// arrives, then the worker pool so in-flight jobs can finish.
func (a *App) Stop() error {
	a.logger.Info("shutting down cost engine")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	if a.cfg.DispatchMode == config.DispatchModeQueued {
		a.pool.Stop()
	}

	if err := a.cache.Close(); err != nil {
		a.logger.Error("error closing redis cache", "error", err)
	}

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("cost engine stopped")
	return nil
}
