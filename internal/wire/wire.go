//go:build wireinject
// +build wireinject

package wire

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/wire"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/polpa/costengine/internal/app"
	"github.com/polpa/costengine/internal/config"
	"github.com/polpa/costengine/internal/core"
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

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(
		app.NewApp,
		server.NewServer,
		server.NewPredictionHandler,
		server.NewWebhookHandler,
		config.LoadConfig,
		db.NewDatabase,
		storage.NewStore,
		storage.NewCache,
		provideJobStore,
		mlclient.NewClient,
		prediction.NewService,
		dispatch.NewStrategy,
		metrics.New,
		provideRegistry,
		provideRegisterer,
		provideGatherer,
		provideManager,
		provideEnqueuer,
		providePool,
		provideFailureHooks,
		provideRedisConfig,
		provideMLConfig,
		provideDBConfig,
		provideLoggerConfig,
		provideLogWriter,
		provideSlogLogger,
		provideRouterHandler,
	)
	return &app.App{}, nil, nil
}

func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideRegisterer(reg *prometheus.Registry) prometheus.Registerer { return reg }

func provideGatherer(reg *prometheus.Registry) prometheus.Gatherer { return reg }

func provideJobStore(db *sqlx.DB, cfg *config.Config) queue.JobStore {
	return queue.NewJobStore(db, cfg.Queue.VisibilityTimeout)
}

func provideManager(store queue.JobStore, cfg *config.Config, hooks core.FailureHooks, logger *slog.Logger) *queue.Manager {
	policy := queue.RetryPolicy{MaxAttempts: cfg.Queue.MaxAttempts, BaseDelay: cfg.Queue.BaseBackoff}
	return queue.NewManager(store, policy, cfg.Queue.FailedRetention, hooks, logger)
}

func provideEnqueuer(m *queue.Manager) queue.Enqueuer { return m }

func providePool(q *queue.Manager, svc prediction.Service, store storage.Store, client mlclient.Client,
	hooks core.FailureHooks, cfg *config.Config, logger *slog.Logger) *workers.Pool {
	return workers.NewPool(q, svc, store, client, hooks, cfg.Queue.Workers, cfg.Queue.PollInterval, logger)
}

func provideFailureHooks(m *metrics.Metrics, logger *slog.Logger) core.FailureHooks {
	return m.Hooks(logger)
}

func provideRedisConfig(cfg *config.Config) config.RedisConfig { return cfg.Redis }

func provideMLConfig(cfg *config.Config) config.MLConfig { return cfg.ML }

func provideDBConfig(cfg *config.Config) *config.DBConfig { return cfg.Database }

func provideLoggerConfig(cfg *config.Config) logger.Config { return cfg.Logging }

func provideLogWriter(cfg *config.Config) io.Writer {
	if cfg.Logging.Output == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}

func provideRouterHandler(cfg *config.Config, predictions *server.PredictionHandler, webhook *server.WebhookHandler, gatherer prometheus.Gatherer) http.Handler {
	return server.NewRouter(cfg, predictions, webhook, gatherer)
}
