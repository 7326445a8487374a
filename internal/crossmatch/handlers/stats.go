package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"starmap-server/internal/crossmatch"
	"starmap-server/internal/resolver"
	"starmap-server/internal/shared/errors"
	"starmap-server/internal/shared/response"
)

// StatsSource is a cross-match store that can describe its contents.
type StatsSource interface {
	Available() bool
	Stats(ctx context.Context) (crossmatch.Stats, error)
}

type StatsResponse struct {
	StoreAvailable bool              `json:"store_available"`
	Store          *crossmatch.Stats `json:"store,omitempty"`
	Resolver       resolver.Stats    `json:"resolver"`
}

type StatsHandler struct {
	store    StatsSource
	resolver *resolver.Service
}

// NewStatsHandler accepts a nil store.
func NewStatsHandler(store StatsSource, resolver *resolver.Service) *StatsHandler {
	return &StatsHandler{store: store, resolver: resolver}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "crossmatch_stats")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	resp := StatsResponse{Resolver: h.resolver.Stats()}

	if h.store != nil && h.store.Available() {
		stats, err := h.store.Stats(ctx)
		if err != nil {
			response.Error(w, r, logger, errors.WrapExternal("failed to read cross-match statistics", err))
			return
		}
		resp.StoreAvailable = true
		resp.Store = &stats
	}

	response.Success(w, http.StatusOK, resp)
}
