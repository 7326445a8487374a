package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap-server/internal/shared/database"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type fixed bool

func (f fixed) Available() bool { return bool(f) }

type count int

func (c count) Len() int { return int(c) }

func check(t *testing.T, deps HealthDeps) HealthResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	NewHealthHandler(deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealthAllDisabled(t *testing.T) {
	resp := check(t, HealthDeps{})
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "disabled", resp.Database)
	assert.Equal(t, "disabled", resp.Redis)
	assert.Equal(t, "disabled", resp.CrossMatch)
	assert.Equal(t, "disabled", resp.Catalog)
	assert.Equal(t, "disabled", resp.Astrometry)
}

func TestHealthReportsDependencies(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()
	mock.ExpectPing()

	resp := check(t, HealthDeps{
		Database:   database.Wrap(sqlDB),
		Redis:      pingFunc(func(context.Context) error { return errors.New("refused") }),
		CrossMatch: fixed(true),
		Catalog:    count(0),
		Astrometry: fixed(false),
	})

	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.Database)
	assert.Equal(t, "disconnected", resp.Redis)
	assert.Equal(t, "loaded", resp.CrossMatch)
	assert.Equal(t, "empty", resp.Catalog)
	assert.Equal(t, "unavailable", resp.Astrometry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	resp := check(t, HealthDeps{
		Database: pingFunc(func(context.Context) error { return errors.New("down") }),
		Catalog:  count(3),
	})
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "loaded", resp.Catalog)
}
