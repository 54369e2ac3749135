package services

import (
	"context"
	"fmt"
	"time"

	"weather-etl/internal/accuweather"
	"weather-etl/internal/models"
	"weather-etl/internal/repository"
	"weather-etl/internal/transform"
	"weather-etl/pkg/logging"
)

// WeatherSource is the subset of the weather API client the ingestion needs
type WeatherSource interface {
	SearchCity(ctx context.Context, name string) (accuweather.Location, error)
	GetCurrentConditions(ctx context.Context, locationKey string) (accuweather.Payload, error)
	GetForecast(ctx context.Context, locationKey int, days int) ([]accuweather.Payload, error)
}

// IngestionService extracts payloads, flattens them and upserts staging rows
type IngestionService struct {
	source WeatherSource
	conn   repository.Connector
	logger *logging.StructuredLogger
}

// IngestionResult contains staging statistics for one dataset
type IngestionResult struct {
	Table    string
	Fetched  int
	Upserted int
	Duration time.Duration
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(source WeatherSource, conn repository.Connector, logger *logging.StructuredLogger) *IngestionService {
	return &IngestionService{
		source: source,
		conn:   conn,
		logger: logger,
	}
}

// IngestForecast fetches a days-long forecast for locationKey and upserts
// one staging row per forecast day into tableName.
func (s *IngestionService) IngestForecast(ctx context.Context, locationKey, days int, tableName string) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_FORECAST_START] Fetching forecast", logging.Fields{
		"location_key":  locationKey,
		"forecast_days": days,
		"table":         tableName,
		"stage":         "EXTRACT",
	})

	payloads, err := s.source.GetForecast(ctx, locationKey, days)
	if err != nil {
		return nil, fmt.Errorf("failed to extract forecast: %w", err)
	}

	records, err := transform.ForecastRecords(payloads, locationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten forecast: %w", err)
	}

	result, err := s.load(ctx, repository.ForecastStagingTable(tableName), records, len(payloads))
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[INGEST_FORECAST_COMPLETE] Forecast staged", logging.Fields{
		"table":            tableName,
		"fetched":          result.Fetched,
		"upserted":         result.Upserted,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// IngestCurrentConditions resolves locationName to a location key, fetches the
// latest observation and upserts it into tableName.
func (s *IngestionService) IngestCurrentConditions(ctx context.Context, locationName, tableName string) (*IngestionResult, error) {
	startTime := time.Now()

	location, err := s.source.SearchCity(ctx, locationName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve location %q: %w", locationName, err)
	}
	locationKey, err := location.NumericKey()
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[INGEST_CURRENT_START] Fetching current conditions", logging.Fields{
		"location_name": locationName,
		"location_key":  location.Key,
		"table":         tableName,
		"stage":         "EXTRACT",
	})

	observation, err := s.source.GetCurrentConditions(ctx, location.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to extract current conditions: %w", err)
	}

	record, err := transform.CurrentConditionsRecord(observation, locationKey, locationName)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten current conditions: %w", err)
	}

	result, err := s.load(ctx, repository.CurrentConditionsStagingTable(tableName), []models.CurrentConditionsRecord{record}, 1)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[INGEST_CURRENT_COMPLETE] Current conditions staged", logging.Fields{
		"table":            tableName,
		"uv_category":      record.UVIndexCategory,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (s *IngestionService) load(ctx context.Context, table repository.Table, records interface{}, fetched int) (*IngestionResult, error) {
	upserted, err := s.conn.Upsert(ctx, table, records)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert staging table %s: %w", table.Name, err)
	}
	return &IngestionResult{Table: table.Name, Fetched: fetched, Upserted: upserted}, nil
}
