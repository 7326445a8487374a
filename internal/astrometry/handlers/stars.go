package handlers

import (
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"starmap-server/internal/astrometry"
	"starmap-server/internal/resolver"
	"starmap-server/internal/shared/errors"
	"starmap-server/internal/shared/response"
	"starmap-server/internal/sky"
)

type ConeResponse struct {
	Stars   []resolver.ResolvedObject `json:"stars"`
	Summary resolver.Summary          `json:"summary"`
}

// StarsHandler answers star queries and attaches catalog numbers to the
// results.
type StarsHandler struct {
	catalog     *astrometry.Catalog
	resolver    *resolver.Service
	radius      float64
	concurrency int
	maxResults  int
}

func NewStarsHandler(catalog *astrometry.Catalog, resolver *resolver.Service, radiusArcsec float64, concurrency, maxResults int) *StarsHandler {
	return &StarsHandler{
		catalog:     catalog,
		resolver:    resolver,
		radius:      radiusArcsec,
		concurrency: concurrency,
		maxResults:  maxResults,
	}
}

func (h *StarsHandler) Cone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "stars_cone")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}
	if !h.catalog.Available() {
		response.Error(w, r, logger, errors.Unavailable("astrometric catalog is not loaded"))
		return
	}

	params, err := h.coneParameters(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	stars, err := h.catalog.QueryCone(ctx, params)
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid cone query", err))
		return
	}

	result := h.resolver.ResolveBatch(ctx, stars, h.radius, h.concurrency)

	response.Success(w, http.StatusOK, ConeResponse{
		Stars:   result.Collect(stars),
		Summary: result.Summary(),
	})
}

func (h *StarsHandler) coneParameters(r *http.Request) (astrometry.QueryParameters, error) {
	query := r.URL.Query()

	ra, err := requiredFloat(query, "ra")
	if err != nil {
		return astrometry.QueryParameters{}, err
	}
	dec, err := requiredFloat(query, "dec")
	if err != nil {
		return astrometry.QueryParameters{}, err
	}

	params := astrometry.NewQueryParameters(sky.Position{RA: ra, Dec: dec})
	if h.maxResults > 0 {
		params.MaxResults = h.maxResults
	}

	if query.Has("radius") {
		if params.RadiusDegrees, err = requiredFloat(query, "radius"); err != nil {
			return params, err
		}
		if params.RadiusDegrees <= 0 {
			return params, errors.Validation("radius must be positive")
		}
	}
	if query.Has("max_mag") {
		if params.MaxMagnitude, err = requiredFloat(query, "max_mag"); err != nil {
			return params, err
		}
	}

	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return params, errors.Validation("limit must be a positive integer")
		}
		if h.maxResults <= 0 || n < h.maxResults {
			params.MaxResults = n
		}
	}
	return params, nil
}

func requiredFloat(query url.Values, name string) (float64, error) {
	value := query.Get(name)
	if value == "" {
		return 0, errors.Validationf("%s is required", name)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.WrapValidation("invalid "+name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Validationf("%s must be a finite number", name)
	}
	return v, nil
}

func (h *StarsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_star")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}
	if !h.catalog.Available() {
		response.Error(w, r, logger, errors.Unavailable("astrometric catalog is not loaded"))
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 0 {
		response.Error(w, r, logger, errors.Validation("invalid source identifier"))
		return
	}

	obj, ok := h.catalog.QueryByID(ctx, id)
	if !ok {
		response.Error(w, r, logger, errors.NotFoundf("star %d not found", id))
		return
	}

	tier := h.resolver.ResolveTier(ctx, obj, h.radius)
	response.Success(w, http.StatusOK, resolver.NewResolvedObject(obj, tier))
}

func (h *StarsHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "search_star")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}
	if !h.catalog.Available() {
		response.Error(w, r, logger, errors.Unavailable("astrometric catalog is not loaded"))
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		response.Error(w, r, logger, errors.Validation("name is required"))
		return
	}

	obj, ok := h.catalog.QueryByName(ctx, name)
	if !ok {
		response.Error(w, r, logger, errors.NotFoundf("no star named %q", name))
		return
	}

	tier := h.resolver.ResolveTier(ctx, obj, h.radius)
	response.Success(w, http.StatusOK, resolver.NewResolvedObject(obj, tier))
}
