package server

import (
	"context"
	"log/slog"
	"net/http"

	astrometryHandlers "starmap-server/internal/astrometry/handlers"
	catalogHandlers "starmap-server/internal/catalog/handlers"
	crossmatchHandlers "starmap-server/internal/crossmatch/handlers"
	"starmap-server/internal/middleware"
	resolverHandlers "starmap-server/internal/resolver/handlers"
	serverHandlers "starmap-server/internal/server/handlers"
	"starmap-server/internal/shared/redis"
)

type Routes struct {
	app    *App
	logger *slog.Logger
}

func NewRoutes(app *App, logger *slog.Logger) *Routes {
	return &Routes{app: app, logger: logger}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	cfg := r.app.Config
	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.healthDeps())
	resolveHandler := resolverHandlers.NewResolveHandler(
		r.app.Resolver,
		cfg.CrossMatch.SearchRadiusArcsec,
		cfg.CrossMatch.BatchConcurrency,
		cfg.CrossMatch.MaxObjectsPerSearch,
	)
	catalogHandler := catalogHandlers.NewCatalogHandler(r.app.Catalog, cfg.Catalog.Path)
	starsHandler := astrometryHandlers.NewStarsHandler(
		r.app.Stars,
		r.app.Resolver,
		cfg.CrossMatch.SearchRadiusArcsec,
		cfg.CrossMatch.BatchConcurrency,
		cfg.CrossMatch.MaxObjectsPerSearch,
	)

	var statsSource crossmatchHandlers.StatsSource
	if r.app.Store != nil {
		statsSource = r.app.Store
	}
	statsHandler := crossmatchHandlers.NewStatsHandler(statsSource, r.app.Resolver)

	// Public endpoints
	mux.Handle("GET /api/server/health", healthHandler)
	mux.Handle("POST /api/resolve", resolveHandler)
	mux.HandleFunc("GET /api/catalog/{number}", catalogHandler.GetByNumber)
	mux.Handle("GET /api/crossmatch/stats", statsHandler)
	mux.HandleFunc("GET /api/stars/cone", starsHandler.Cone)
	mux.HandleFunc("GET /api/stars/search", starsHandler.Search)
	mux.HandleFunc("GET /api/stars/{id}", starsHandler.GetByID)

	// Admin-only endpoints
	mux.Handle("POST /api/catalog/load",
		middleware.RequireAdmin(cfg.Auth.JWTSecret, http.HandlerFunc(catalogHandler.Load)))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{
			"/api/server/health", "/api/resolve", "/api/catalog/{number}",
			"/api/crossmatch/stats", "/api/stars/cone", "/api/stars/search", "/api/stars/{id}",
		},
		"admin_endpoints", []string{"/api/catalog/load"},
		"admin_enabled", cfg.AdminEnabled(),
	)

	return mux
}

func (r *Routes) healthDeps() serverHandlers.HealthDeps {
	// a nil *astrometry.Catalog reports itself unavailable
	deps := serverHandlers.HealthDeps{Catalog: r.app.Catalog, Astrometry: r.app.Stars}
	if r.app.DB != nil {
		deps.Database = r.app.DB
	}
	if r.app.Redis != nil {
		deps.Redis = redisPinger{r.app.Redis}
	}
	if r.app.Store != nil {
		deps.CrossMatch = r.app.Store
	}
	return deps
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
