package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap-server/internal/catalog"
	"starmap-server/internal/sky"
)

const catalogCSV = "sao,ra,dec,vmag,sptype,name\n113271,83.858258,-5.909901,2.77,O9III,Hatysa\n"

func newService(t *testing.T) *catalog.Service {
	t.Helper()
	svc := catalog.NewService(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := svc.LoadReader(context.Background(), strings.NewReader(catalogCSV))
	require.NoError(t, err)
	return svc
}

func serve(h http.HandlerFunc, pattern, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestGetByNumber(t *testing.T) {
	h := NewCatalogHandler(newService(t), "")

	rec := serve(h.GetByNumber, "/api/catalog/{number}", http.MethodGet, "/api/catalog/113271")
	require.Equal(t, http.StatusOK, rec.Code)

	var entry sky.CrossMatchEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entry))
	assert.Equal(t, 113271, entry.Number)
	assert.Equal(t, "Hatysa", entry.Name)

	assert.Equal(t, http.StatusNotFound,
		serve(h.GetByNumber, "/api/catalog/{number}", http.MethodGet, "/api/catalog/5").Code)
	assert.Equal(t, http.StatusBadRequest,
		serve(h.GetByNumber, "/api/catalog/{number}", http.MethodGet, "/api/catalog/abc").Code)
	assert.Equal(t, http.StatusBadRequest,
		serve(h.GetByNumber, "/api/catalog/{number}", http.MethodGet, "/api/catalog/-3").Code)
	assert.Equal(t, http.StatusMethodNotAllowed,
		serve(h.GetByNumber, "/api/catalog/{number}", http.MethodPost, "/api/catalog/1").Code)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sao.csv")
	require.NoError(t, os.WriteFile(path, []byte(catalogCSV+"118820,83.001667,-0.299095,2.23,O9.5II,Mintaka\n"), 0o600))

	svc := newService(t)
	h := NewCatalogHandler(svc, path)

	rec := serve(h.Load, "/api/catalog/load", http.MethodPost, "/api/catalog/load")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"`+path+`","loaded":2,"total":2}`, rec.Body.String())

	disabled := NewCatalogHandler(svc, "")
	assert.Equal(t, http.StatusServiceUnavailable,
		serve(disabled.Load, "/api/catalog/load", http.MethodPost, "/api/catalog/load").Code)

	broken := NewCatalogHandler(svc, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Equal(t, http.StatusInternalServerError,
		serve(broken.Load, "/api/catalog/load", http.MethodPost, "/api/catalog/load").Code)
}
