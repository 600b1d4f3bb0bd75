package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ubc/wiki-cwl-link/config"
	redisadapters "github.com/ubc/wiki-cwl-link/internal/adapters/redis"
	"github.com/ubc/wiki-cwl-link/internal/data"
	"github.com/ubc/wiki-cwl-link/internal/directory"
	"github.com/ubc/wiki-cwl-link/internal/ports"
	"github.com/ubc/wiki-cwl-link/internal/service"
)

// App bundles the wired account-link components handed to the host
// application's authentication plugin.
type App struct {
	Extractor  *directory.Extractor
	Reconciler *service.Reconciler
	DB         *sql.DB
	Redis      goredis.UniversalClient
}

// BuildOptions groups everything Build needs beyond configuration.
type BuildOptions struct {
	Config config.AppConfig
	Logger *slog.Logger
	// Blocker is the host's block enforcement; the core only decides.
	Blocker ports.AccountBlocker
}

// Build connects the backing stores and wires the extractor and reconciler.
func Build(ctx context.Context, opts BuildOptions) (*App, error) {
	if opts.Blocker == nil {
		return nil, errors.New("account blocker is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbCfg := DatabaseConfig{
		DBConfig:    opts.Config.Postgres,
		RedisConfig: opts.Config.Redis,
		Logger:      logger,
	}
	db, err := ConnectDB(dbCfg)
	if err != nil {
		return nil, err
	}
	if opts.Config.Postgres.RunMigrationsOnStart {
		if migrateErr := data.RunMigrations(ctx, db); migrateErr != nil {
			return nil, errors.Join(fmt.Errorf("run migrations: %w", migrateErr), db.Close())
		}
	}

	rdb, err := ConnectRedis(dbCfg)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	extractor, err := directory.NewExtractor(opts.Config.Directory)
	if err != nil {
		return nil, errors.Join(err, db.Close(), rdb.Close())
	}

	reconciler := service.NewReconciler(service.ReconcilerOptions{
		Links: data.NewLinkRepo(db),
		Users: data.NewWikiUserRepo(db),
		Pending: redisadapters.NewPendingStore(rdb, redisadapters.PendingStoreOptions{
			Prefix: opts.Config.Pending.KeyPrefix,
			TTL:    opts.Config.Pending.TTL,
		}),
		Blocker:  opts.Blocker,
		Throttle: redisadapters.NewAddressThrottle(rdb),
		Logger:   logger,
	})

	return &App{
		Extractor:  extractor,
		Reconciler: reconciler,
		DB:         db,
		Redis:      rdb,
	}, nil
}

// Close releases the App's connections.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
