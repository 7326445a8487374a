package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"starmap-server/internal/resolver"
	"starmap-server/internal/shared/errors"
	"starmap-server/internal/shared/response"
	"starmap-server/internal/sky"
)

const maxRequestBytes = 8 << 20

type ObjectRequest struct {
	SourceID     *int64  `json:"source_id"`
	RA           float64 `json:"ra"`
	Dec          float64 `json:"dec"`
	Magnitude    float64 `json:"magnitude"`
	SpectralType string  `json:"spectral_type"`
	Name         string  `json:"name"`
	SAONumber    *int    `json:"sao_number"`
}

type ResolveRequest struct {
	Objects      []ObjectRequest `json:"objects"`
	RadiusArcsec float64         `json:"radius_arcsec"`
}

type ResolveResponse struct {
	Objects []resolver.ResolvedObject `json:"objects"`
	Summary resolver.Summary          `json:"summary"`
}

type ResolveHandler struct {
	service     *resolver.Service
	radius      float64
	concurrency int
	maxObjects  int
}

func NewResolveHandler(service *resolver.Service, defaultRadiusArcsec float64, concurrency, maxObjects int) *ResolveHandler {
	return &ResolveHandler{
		service:     service,
		radius:      defaultRadiusArcsec,
		concurrency: concurrency,
		maxObjects:  maxObjects,
	}
}

func (h *ResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "resolve")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req ResolveRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	radius := req.RadiusArcsec
	if radius == 0 {
		radius = h.radius
	}
	if err := resolver.ValidateRadius(radius); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid radius_arcsec", err))
		return
	}

	if len(req.Objects) == 0 {
		response.Error(w, r, logger, errors.Validation("objects must not be empty"))
		return
	}
	if h.maxObjects > 0 && len(req.Objects) > h.maxObjects {
		response.Error(w, r, logger, errors.Validationf("at most %d objects per request", h.maxObjects))
		return
	}

	objs := make([]*sky.CelestialObject, len(req.Objects))
	for i, o := range req.Objects {
		obj, err := o.toObject()
		if err != nil {
			response.Error(w, r, logger, errors.WrapValidation("invalid object", err))
			return
		}
		objs[i] = obj
	}

	result := h.service.ResolveBatch(ctx, objs, radius, h.concurrency)

	logger.Debug("Resolve request completed",
		"objects", len(objs),
		"resolved", result.Resolved,
		"radius_arcsec", radius)

	response.Success(w, http.StatusOK, ResolveResponse{
		Objects: result.Collect(objs),
		Summary: result.Summary(),
	})
}

func (o ObjectRequest) toObject() (*sky.CelestialObject, error) {
	pos := sky.Position{RA: o.RA, Dec: o.Dec}
	if err := pos.Validate(); err != nil {
		return nil, err
	}

	sourceID := sky.NoSourceID
	if o.SourceID != nil && *o.SourceID >= 0 {
		sourceID = *o.SourceID
	}

	obj := sky.NewObject(sourceID, pos, o.Magnitude)
	obj.SpectralType = o.SpectralType
	obj.Name = o.Name
	if o.SAONumber != nil {
		if *o.SAONumber <= 0 {
			return nil, errors.Validation("sao_number must be positive")
		}
		obj.SetCatalogNumber(*o.SAONumber)
	}
	return obj, nil
}
