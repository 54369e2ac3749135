package services

import (
	"context"
	"time"

	"weather-etl/internal/models"
	"weather-etl/internal/repository"
	"weather-etl/pkg/logging"
)

// ReportingService serves staged and serving rows plus run history
type ReportingService struct {
	repo   repository.ReportingRepository
	runs   repository.RunLogRepository
	logger *logging.StructuredLogger
}

// NewReportingService creates a new reporting service
func NewReportingService(repo repository.ReportingRepository, runs repository.RunLogRepository, logger *logging.StructuredLogger) *ReportingService {
	return &ReportingService{
		repo:   repo,
		runs:   runs,
		logger: logger,
	}
}

// GetForecasts retrieves staged forecast days with filtering
func (s *ReportingService) GetForecasts(ctx context.Context, filter repository.ForecastFilter) ([]*models.ForecastRecord, int, error) {
	return s.repo.ListForecasts(ctx, filter)
}

// GetForecast retrieves one forecast day for a location
func (s *ReportingService) GetForecast(ctx context.Context, locationKey int, date time.Time) (*models.ForecastRecord, error) {
	return s.repo.GetForecast(ctx, locationKey, date)
}

// GetPrecipitationOutlook retrieves the forecast serving table
func (s *ReportingService) GetPrecipitationOutlook(ctx context.Context, filter repository.DateRangeFilter) ([]*models.PrecipitationOutlook, int, error) {
	return s.repo.ListPrecipitationOutlook(ctx, filter)
}

// GetUVCategories retrieves the current-conditions serving table
func (s *ReportingService) GetUVCategories(ctx context.Context, filter repository.UVFilter) ([]*models.UVCategory, int, error) {
	return s.repo.ListUVCategories(ctx, filter)
}

// GetRuns retrieves pipeline runs, newest first
func (s *ReportingService) GetRuns(ctx context.Context, filter repository.RunFilter) ([]*models.PipelineRun, int, error) {
	return s.runs.ListRuns(ctx, filter)
}

// GetRun retrieves one pipeline run by ID
func (s *ReportingService) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	return s.runs.GetRun(ctx, runID)
}

// HealthCheck verifies the database is reachable
func (s *ReportingService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
