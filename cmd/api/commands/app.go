package commands

import (
	"context"
	"fmt"

	"github.com/taskmaster/todo/internal/adapters/repository"
	"github.com/taskmaster/todo/internal/application/jobs"
	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/cache"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/database"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
	"github.com/taskmaster/todo/internal/infrastructure/server"
	"github.com/taskmaster/todo/internal/ports"
)

// application is the wired set of components for one storage mode
type application struct {
	cfg     *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	store    *services.TaskStore
	sessions *services.Sessions
	auth     ports.Authenticator
	authRepo ports.AuthRepository

	checks  map[string]server.ReadinessCheck
	closers []func() error
}

func loadConfigAndLogger() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, appLogger, nil
}

// newApplication builds the persistence backend selected by storage.mode.
// Local mode gets one store with the device scope activated; remote mode
// gets a session registry that builds a store per signed-in user.
func newApplication(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*application, error) {
	app := &application{
		cfg:     cfg,
		logger:  appLogger,
		metrics: metrics.New(),
		checks:  map[string]server.ReadinessCheck{},
	}

	var repo ports.TaskListRepository

	switch {
	case cfg.Storage.IsRemote():
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		app.checks["database"] = db.Ready

		repo = repository.NewRemoteTaskListRepository(db)
		app.authRepo = repository.NewAuthRepository(db.DB)
		app.auth = services.NewAuthService(repository.NewUserRepository(db.DB), app.authRepo, cfg.JWT, appLogger)

	case cfg.Storage.LocalDriver == config.DriverRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis, appLogger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)

		kv := cache.NewRedisStore(client)
		app.checks["redis"] = kv.Ping
		repo = repository.NewLocalTaskListRepository(kv, cfg.Storage.KeyPrefix, config.DriverRedis, appLogger)

	default:
		kv := repository.NewFileKeyValueStore(cfg.Storage.FilePath)
		repo = repository.NewLocalTaskListRepository(kv, cfg.Storage.KeyPrefix, config.DriverFile, appLogger)
	}

	newStore := func() *services.TaskStore {
		return services.NewTaskStore(repo, app.metrics, cfg.Storage, appLogger)
	}

	if cfg.Storage.IsRemote() {
		app.sessions = services.NewSessions(app.auth, newStore, appLogger)
	} else {
		app.store = newStore()
		app.store.Activate(ctx, entities.DeviceScope)
	}

	appLogger.Infow("Storage ready", "mode", cfg.Storage.Mode, "backend", repo.Backend())
	return app, nil
}

// lists is what the overdue reporter counts: the device list, or every
// signed-in user's list.
func (a *application) lists() jobs.Snapshotter {
	if a.sessions != nil {
		return a.sessions
	}
	return a.store
}

// Close waits for pending writes and releases connections.
func (a *application) Close() {
	if a.sessions != nil {
		a.sessions.Wait()
	} else {
		a.store.Wait()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warnw("Failed to close resource", "error", err)
		}
	}
}
