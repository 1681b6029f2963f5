package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/choreboard/choreboard/internal/config"
	"github.com/choreboard/choreboard/internal/platform/identity"
	"github.com/choreboard/choreboard/internal/platform/logger"
	"github.com/choreboard/choreboard/internal/platform/metrics"
	"github.com/choreboard/choreboard/internal/platform/notify"
	"github.com/choreboard/choreboard/internal/platform/postgres"
	"github.com/choreboard/choreboard/internal/service"
	"github.com/choreboard/choreboard/internal/service/auth"
	"github.com/choreboard/choreboard/internal/store"
	"github.com/choreboard/choreboard/internal/sweep"
	"github.com/choreboard/choreboard/internal/ws"
)

// application holds the wired components of the server.
type application struct {
	config *config.Config
	logger *slog.Logger

	pool       *pgxpool.Pool // nil when running on the in-memory store
	registry   *prometheus.Registry
	verifier   auth.TokenVerifier
	gateway    *ws.Gateway
	taskSvc    service.TaskService
	dispatcher *service.EffectDispatcher
	sweeper    *sweep.Sweeper
}

// initializeApp loads configuration and wires every component of the
// server. The caller owns the returned application and must call cleanup.
func initializeApp(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("database_configured", cfg.Database.URL != ""))

	app := &application{
		config:   cfg,
		logger:   log,
		registry: prometheus.NewRegistry(),
	}

	collector := metrics.NewCollector(app.registry)

	// Persistence: Postgres when a database URL is configured, otherwise
	// the in-memory store.
	var taskStore service.TaskStore
	if cfg.Database.URL != "" {
		if err := runMigrations(ctx, cfg.Database.URL, log); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		app.pool = pool
		taskStore = postgres.NewPostgresTaskStore(pool)
		log.Info("using postgres task store")
	} else {
		taskStore = store.NewMemoryTaskStore()
		log.Warn("no database URL configured, using in-memory task store")
	}

	app.verifier, err = auth.NewTokenVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	app.gateway = ws.NewGateway(app.verifier, cfg.Gateway, log, collector)

	perms := identity.NewFromConfig(cfg.Permissions)
	log.Info("permission backend selected", slog.String("mode", cfg.Permissions.Mode))

	app.taskSvc, err = service.NewTaskService(taskStore, perms, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.dispatcher, err = service.NewEffectDispatcher(
		app.gateway,
		notify.NewLogNotifier(log),
		notify.NewLogMusicController(log),
		log,
		collector,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create effect dispatcher: %w", err)
	}

	app.sweeper, err = sweep.NewSweeper(app.taskSvc, app.dispatcher, cfg.Sweep.Interval, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweeper: %w", err)
	}

	return app, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if app.pool != nil {
		app.pool.Close()
	}
}
