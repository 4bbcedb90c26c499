// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/polpa/costengine/internal/app"
	"github.com/polpa/costengine/internal/config"
	"github.com/polpa/costengine/internal/db"
	"github.com/polpa/costengine/internal/dispatch"
	"github.com/polpa/costengine/internal/logger"
	"github.com/polpa/costengine/internal/metrics"
	"github.com/polpa/costengine/internal/mlclient"
	"github.com/polpa/costengine/internal/prediction"
	"github.com/polpa/costengine/internal/queue"
	"github.com/polpa/costengine/internal/server"
	"github.com/polpa/costengine/internal/storage"
	"github.com/polpa/costengine/internal/workers"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Logger
	var logWriter io.Writer
	if cfg.Logging.Output == "stderr" {
		logWriter = os.Stderr
	} else {
		logWriter = os.Stdout
	}
	slogLogger := logger.NewLogger(cfg.Logging, logWriter)

	// Database (migrations run inside)
	dbConn, dbCleanup, err := db.NewDatabase(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Stores
	store := storage.NewStore(dbConn.DB)
	cache := storage.NewCache(cfg.Redis, slogLogger)
	jobStore := queue.NewJobStore(dbConn.DB, cfg.Queue.VisibilityTimeout)

	// Metrics
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	hooks := m.Hooks(slogLogger)

	// Queue manager
	policy := queue.RetryPolicy{MaxAttempts: cfg.Queue.MaxAttempts, BaseDelay: cfg.Queue.BaseBackoff}
	manager := queue.NewManager(jobStore, policy, cfg.Queue.FailedRetention, hooks, slogLogger)

	// Remote prediction client
	client := mlclient.NewClient(cfg.ML, slogLogger)

	// Prediction service
	svc := prediction.NewService(store, cache, m, slogLogger)

	// Dispatch strategy
	strategy, err := dispatch.NewStrategy(cfg, svc, manager, client, m, slogLogger)
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to build dispatch strategy: %w", err)
	}

	// Worker pool
	pool := workers.NewPool(manager, svc, store, client, hooks, cfg.Queue.Workers, cfg.Queue.PollInterval, slogLogger)

	// HTTP surface
	predictionHandler := server.NewPredictionHandler(svc, strategy, client, slogLogger)
	webhookHandler := server.NewWebhookHandler(store, svc, slogLogger)
	router := server.NewRouter(cfg, predictionHandler, webhookHandler, registry)
	srv := server.NewServer(cfg, router, slogLogger)

	// App
	application := app.NewApp(ctx, cfg, srv, pool, store, manager, cache, slogLogger)

	cleanup := func() {
		dbCleanup()
	}

	return application, cleanup, nil
}
