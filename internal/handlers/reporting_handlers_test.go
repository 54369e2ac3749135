package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-etl/internal/models"
	"weather-etl/internal/repository"
	"weather-etl/internal/services"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

type fakeReporting struct {
	forecastFilter repository.ForecastFilter
	uvFilter       repository.UVFilter
	dateFilter     repository.DateRangeFilter
	err            error
	healthErr      error
}

func (f *fakeReporting) ListForecasts(ctx context.Context, filter repository.ForecastFilter) ([]*models.ForecastRecord, int, error) {
	f.forecastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	return []*models.ForecastRecord{{LocationKey: 28143, WindierPeriod: "day"}}, 250, nil
}

func (f *fakeReporting) GetForecast(ctx context.Context, locationKey int, date time.Time) (*models.ForecastRecord, error) {
	if locationKey != 28143 {
		return nil, &repository.NotFoundError{Resource: "forecast", ID: "x"}
	}
	return &models.ForecastRecord{LocationKey: locationKey, Date: date}, nil
}

func (f *fakeReporting) ListPrecipitationOutlook(ctx context.Context, filter repository.DateRangeFilter) ([]*models.PrecipitationOutlook, int, error) {
	f.dateFilter = filter
	return []*models.PrecipitationOutlook{{CountPrecipitationsNextFiveDays: 3}}, 1, nil
}

func (f *fakeReporting) ListUVCategories(ctx context.Context, filter repository.UVFilter) ([]*models.UVCategory, int, error) {
	f.uvFilter = filter
	return []*models.UVCategory{{LocationName: "Dhaka", UVIndexCategory: "HIGH"}}, 1, nil
}

func (f *fakeReporting) HealthCheck(ctx context.Context) error {
	return f.healthErr
}

type fakeRuns struct {
	filter repository.RunFilter
}

func (f *fakeRuns) Record(ctx context.Context, run *models.PipelineRun) error { return nil }

func (f *fakeRuns) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	if runID != "run-1" {
		return nil, &repository.NotFoundError{Resource: "pipeline_run", ID: runID}
	}
	return &models.PipelineRun{RunID: runID, Status: models.RunSuccess}, nil
}

func (f *fakeRuns) ListRuns(ctx context.Context, filter repository.RunFilter) ([]*models.PipelineRun, int, error) {
	f.filter = filter
	return []*models.PipelineRun{{RunID: "run-1", Status: models.RunFailure}}, 1, nil
}

func newTestRouter(t *testing.T) (*mux.Router, *fakeReporting, *fakeRuns) {
	t.Helper()
	logger := logging.NewStructuredLogger("test", "test", logging.DebugLevel)
	logger.SetOutput(&bytes.Buffer{})
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	repo := &fakeReporting{}
	runs := &fakeRuns{}
	handler := NewReportingHandler(services.NewReportingService(repo, runs, logger), logger, collector)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router, repo, runs
}

func get(t *testing.T, router http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestGetForecasts_FiltersAndPagination(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	rec := get(t, router, "/api/forecasts?location_key=28143&start_date=2024-05-01&page=3&limit=50")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, repo.forecastFilter.LocationKey)
	assert.Equal(t, 28143, *repo.forecastFilter.LocationKey)
	require.NotNil(t, repo.forecastFilter.StartDate)
	assert.Equal(t, "2024-05-01", repo.forecastFilter.StartDate.Format("2006-01-02"))
	assert.Nil(t, repo.forecastFilter.EndDate)
	assert.Equal(t, 50, repo.forecastFilter.Limit)
	assert.Equal(t, 100, repo.forecastFilter.Offset)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 250, resp.Total)
	assert.Equal(t, 3, resp.Page)
	assert.Equal(t, 5, resp.TotalPages)
}

func TestGetForecasts_DefaultsOnBadPagination(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	rec := get(t, router, "/api/forecasts?page=-1&limit=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultLimit, repo.forecastFilter.Limit)
	assert.Equal(t, 0, repo.forecastFilter.Offset)
}

func TestGetForecasts_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"bad date", "/api/forecasts?start_date=05/01/2024"},
		{"bad location", "/api/forecasts?location_key=dhaka"},
		{"bad end date", "/api/precipitation?end_date=tomorrow"},
		{"bad status", "/api/runs?status=running"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, _ := newTestRouter(t)
			rec := get(t, router, tt.url)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestGetForecasts_InternalError(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	repo.err = errors.New("connection reset")

	rec := get(t, router, "/api/forecasts")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestGetForecast(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := get(t, router, "/api/forecasts/28143/2024-05-01")
	require.Equal(t, http.StatusOK, rec.Code)

	var forecast models.ForecastRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forecast))
	assert.Equal(t, 28143, forecast.LocationKey)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/forecasts/1/2024-05-01").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/forecasts/28143/May-1").Code)
}

func TestGetUVCategories(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	rec := get(t, router, "/api/uv?location_key=28143")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.uvFilter.LocationKey)
	assert.Contains(t, rec.Body.String(), `"uv_index_category":"HIGH"`)
}

func TestGetPrecipitationOutlook(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	rec := get(t, router, "/api/precipitation?end_date=2024-05-10")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.dateFilter.EndDate)
	assert.Contains(t, rec.Body.String(), `"count_precipitations_next_five_days":3`)
}

func TestGetRuns(t *testing.T) {
	router, _, runs := newTestRouter(t)

	rec := get(t, router, "/api/runs?status=failure")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, runs.filter.Status)
	assert.Equal(t, models.RunFailure, *runs.filter.Status)

	assert.Equal(t, http.StatusOK, get(t, router, "/api/runs/run-1").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/runs/run-2").Code)
}

func TestHealthCheck(t *testing.T) {
	router, repo, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, get(t, router, "/health").Code)

	repo.healthErr = errors.New("database unavailable")
	rec := get(t, router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"down"`)
}

func TestDocs(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := get(t, router, "/api/docs/openapi.json")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	paths := doc["paths"].(map[string]interface{})
	for _, path := range []string{"/api/forecasts", "/api/precipitation", "/api/uv", "/api/runs", "/health", "/metrics"} {
		assert.Contains(t, paths, path)
	}

	rec = get(t, router, "/api/docs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/docs/openapi.json")
}
