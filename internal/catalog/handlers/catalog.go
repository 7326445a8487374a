package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"starmap-server/internal/catalog"
	"starmap-server/internal/shared/errors"
	"starmap-server/internal/shared/response"
)

type LoadResponse struct {
	Path   string `json:"path"`
	Loaded int    `json:"loaded"`
	Total  int    `json:"total"`
}

type CatalogHandler struct {
	service *catalog.Service
	path    string
}

// NewCatalogHandler serves lookups from service. path is the file reloaded
// by Load; an empty path disables reloading.
func NewCatalogHandler(service *catalog.Service, path string) *CatalogHandler {
	return &CatalogHandler{service: service, path: path}
}

func (h *CatalogHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_catalog_entry")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	numberStr := r.PathValue("number")
	if numberStr == "" {
		response.Error(w, r, logger, errors.Validation("catalog number is required"))
		return
	}

	number, err := strconv.Atoi(numberStr)
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid catalog number format", err))
		return
	}
	if number <= 0 {
		response.Error(w, r, logger, errors.Validation("catalog number must be positive"))
		return
	}

	entry, ok := h.service.FindByNumber(ctx, number)
	if !ok {
		response.Error(w, r, logger, errors.NotFoundf("catalog entry %d not found", number))
		return
	}

	response.Success(w, http.StatusOK, entry)
}

func (h *CatalogHandler) Load(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "load_catalog")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	if h.path == "" {
		response.Error(w, r, logger, errors.Unavailable("no catalog file configured"))
		return
	}

	loaded, err := h.service.Load(ctx, h.path)
	if err != nil {
		response.Error(w, r, logger, errors.WrapInternal("failed to load catalog", err))
		return
	}

	logger.Info("Catalog reloaded", "path", h.path, "loaded", loaded)

	response.Success(w, http.StatusOK, LoadResponse{
		Path:   h.path,
		Loaded: loaded,
		Total:  h.service.Len(),
	})
}
