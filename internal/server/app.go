package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"starmap-server/internal/astrometry"
	"starmap-server/internal/catalog"
	"starmap-server/internal/crossmatch"
	"starmap-server/internal/remote"
	"starmap-server/internal/resolver"
	"starmap-server/internal/shared/config"
	"starmap-server/internal/shared/database"
	"starmap-server/internal/shared/redis"
)

// CrossMatchStore is a resolver store that can also report statistics.
type CrossMatchStore interface {
	resolver.Store
	Stats(ctx context.Context) (crossmatch.Stats, error)
	Statistics(ctx context.Context) string
}

// App owns every long-lived collaborator built from the configuration.
type App struct {
	Config *config.Config

	DB    *database.DB
	Redis *redis.Client

	Store    CrossMatchStore
	Remote   *remote.Client
	Catalog  *catalog.Service
	Stars    *astrometry.Catalog
	Resolver *resolver.Service

	logger *slog.Logger
}

// NewApp connects and loads everything cfg asks for. The astrometric catalog
// is optional: when it cannot be opened the star endpoints report it as
// unavailable.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	log := logger.With("component", "app", "operation", "init")
	app := &App{Config: cfg, logger: logger}

	if err := app.connect(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	store, err := app.openStore(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = store

	app.Remote = remote.NewClient(remote.Options{
		SimbadURL:         cfg.Remote.SimbadURL,
		VizierURL:         cfg.Remote.VizierURL,
		VizierSource:      cfg.Remote.VizierSource,
		ProviderName:      cfg.Remote.ProviderName,
		CatalogTag:        cfg.Remote.CatalogTag,
		UserAgent:         cfg.Remote.UserAgent,
		IdentifierTimeout: cfg.Remote.IdentifierTimeout,
		ConeTimeout:       cfg.Remote.ConeTimeout,
		RequestsPerSecond: cfg.Remote.RequestsPerSecond,
		BurstSize:         cfg.Remote.BurstSize,
	}, logger)

	var memo catalog.EntryCache = catalog.NewLRUCache(cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL)
	if app.Redis != nil {
		memo = catalog.NewRedisCache(app.Redis, cfg.Catalog.CacheTTL)
	}
	app.Catalog = catalog.NewService(memo, app.Remote, logger)
	if cfg.Catalog.Path != "" {
		if _, err := app.Catalog.Load(ctx, cfg.Catalog.Path); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	app.Stars, err = astrometry.Open(ctx, astrometry.Config{
		Directory:        cfg.Astrometry.Directory,
		MaxCachedQueries: cfg.Astrometry.MaxCachedQueries,
		LogLevel:         cfg.Astrometry.LogLevel,
	}, logger)
	if err != nil {
		log.Warn("Astrometric catalog unavailable", "error", err)
		app.Stars = nil
	}

	app.Resolver = resolver.NewService(app.Store, app.Remote, logger)

	log.Info("Application initialized",
		"crossmatch_source", cfg.CrossMatch.Source,
		"catalog_entries", app.Catalog.Len(),
		"astrometry_available", app.Stars.Available(),
		"redis_enabled", app.Redis != nil)

	return app, nil
}

func (a *App) connect(ctx context.Context) error {
	if a.Config.Database.Enabled {
		db, err := database.Connect(ctx, a.Config)
		if err != nil {
			return err
		}
		a.DB = db

		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	rdb, err := redis.Connect(ctx, a.Config.Redis)
	if err != nil {
		return err
	}
	a.Redis = rdb
	return nil
}

func (a *App) openStore(ctx context.Context) (CrossMatchStore, error) {
	switch a.Config.CrossMatch.Source {
	case "postgres":
		if a.DB == nil {
			return nil, fmt.Errorf("cross-match source postgres requires a database connection")
		}
		return crossmatch.NewRepository(a.DB, a.logger), nil
	case "file":
		store := crossmatch.NewMemoryStore(crossmatch.DefaultBandHeightDegrees, a.logger)
		if _, err := store.LoadFile(ctx, a.Config.CrossMatch.Path); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}

// Close releases every resource NewApp acquired.
func (a *App) Close() error {
	var errs []error
	if err := a.Stars.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Redis.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
