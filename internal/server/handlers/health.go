package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"starmap-server/internal/shared/response"
)

const (
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
	statusDisabled     = "disabled"
	statusLoaded       = "loaded"
	statusEmpty        = "empty"
	statusUnavailable  = "unavailable"
)

// Pinger is satisfied by *database.DB; redis clients are adapted by the caller.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Availability interface {
	Available() bool
}

type Counter interface {
	Len() int
}

type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	Database   string `json:"database"`
	Redis      string `json:"redis"`
	CrossMatch string `json:"crossmatch"`
	Catalog    string `json:"catalog"`
	Astrometry string `json:"astrometry"`
}

// HealthDeps lists what the health check reports on. Nil fields are reported
// as disabled.
type HealthDeps struct {
	Database   Pinger
	Redis      Pinger
	CrossMatch Availability
	Catalog    Counter
	Astrometry Availability
}

type HealthHandler struct {
	deps HealthDeps
}

func NewHealthHandler(deps HealthDeps) *HealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().Format(time.RFC3339),
		Database:   ping(ctx, logger, "database", h.deps.Database),
		Redis:      ping(ctx, logger, "redis", h.deps.Redis),
		CrossMatch: availability(h.deps.CrossMatch),
		Catalog:    statusDisabled,
		Astrometry: availability(h.deps.Astrometry),
	}

	if h.deps.Catalog != nil {
		resp.Catalog = statusEmpty
		if h.deps.Catalog.Len() > 0 {
			resp.Catalog = statusLoaded
		}
	}

	if resp.Database == statusDisconnected {
		resp.Status = "degraded"
	}

	response.Success(w, http.StatusOK, resp)
}

func ping(ctx context.Context, logger *slog.Logger, name string, p Pinger) string {
	if p == nil {
		return statusDisabled
	}
	if err := p.PingContext(ctx); err != nil {
		logger.Warn("Ping failed", "dependency", name, "error", err)
		return statusDisconnected
	}
	return statusConnected
}

func availability(a Availability) string {
	if a == nil {
		return statusDisabled
	}
	if a.Available() {
		return statusLoaded
	}
	return statusUnavailable
}
