package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"weather-etl/internal/models"
	"weather-etl/pkg/database"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

// ReportingRepository provides read access to staging and serving tables
type ReportingRepository interface {
	ListForecasts(ctx context.Context, filter ForecastFilter) ([]*models.ForecastRecord, int, error)
	GetForecast(ctx context.Context, locationKey int, date time.Time) (*models.ForecastRecord, error)
	ListPrecipitationOutlook(ctx context.Context, filter DateRangeFilter) ([]*models.PrecipitationOutlook, int, error)
	ListUVCategories(ctx context.Context, filter UVFilter) ([]*models.UVCategory, int, error)
	HealthCheck(ctx context.Context) error
}

// ReportingTables names the tables the reporting queries read
type ReportingTables struct {
	ForecastStaging          string
	ForecastServing          string
	CurrentConditionsServing string
}

// ForecastFilter defines filters for querying forecast days
type ForecastFilter struct {
	LocationKey *int
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
	Offset      int
}

// DateRangeFilter defines filters for date-keyed serving rows
type DateRangeFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// UVFilter defines filters for the UV category serving table
type UVFilter struct {
	LocationKey *int
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
	Offset      int
}

type reportingRepository struct {
	db      *database.PostgresDB
	tables  ReportingTables
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewReportingRepository creates a reporting repository
func NewReportingRepository(db *database.PostgresDB, tables ReportingTables, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ReportingRepository {
	return &reportingRepository{
		db:      db,
		tables:  tables,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// queryBuilder accumulates WHERE conditions with numbered placeholders
type queryBuilder struct {
	query  string
	args   []interface{}
	argNum int
}

func newQueryBuilder(base string) *queryBuilder {
	return &queryBuilder{query: base + " WHERE 1=1", argNum: 1}
}

func (b *queryBuilder) where(cond string, arg interface{}) {
	b.query += fmt.Sprintf(" AND "+cond, b.argNum)
	b.args = append(b.args, arg)
	b.argNum++
}

func (b *queryBuilder) countQuery() string {
	return "SELECT COUNT(*) FROM (" + b.query + ") AS count_query"
}

func (b *queryBuilder) page(orderBy string, limit, offset int) (string, []interface{}) {
	query := b.query + " ORDER BY " + orderBy
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", b.argNum, b.argNum+1)
	return query, append(append([]interface{}{}, b.args...), limit, offset)
}

// ListForecasts retrieves staged forecast days with filtering and pagination
func (r *reportingRepository) ListForecasts(ctx context.Context, filter ForecastFilter) ([]*models.ForecastRecord, int, error) {
	table := ForecastStagingTable(r.tables.ForecastStaging)
	b := newQueryBuilder(fmt.Sprintf("SELECT %s FROM %s", quoteAll(table.ColumnNames()), pq.QuoteIdentifier(table.Name)))

	if filter.LocationKey != nil {
		b.where("location_key = $%d", *filter.LocationKey)
	}
	if filter.StartDate != nil {
		b.where("date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		b.where("date <= $%d", *filter.EndDate)
	}

	var totalCount int
	if err := r.db.GetContext(ctx, "count_forecasts", &totalCount, b.countQuery(), b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count forecasts: %w", err)
	}

	query, args := b.page("date DESC, location_key", filter.Limit, filter.Offset)
	var forecasts []*models.ForecastRecord
	if err := r.db.SelectContext(ctx, "list_forecasts", &forecasts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list forecasts: %w", err)
	}

	return forecasts, totalCount, nil
}

// GetForecast retrieves one staged forecast day
func (r *reportingRepository) GetForecast(ctx context.Context, locationKey int, date time.Time) (*models.ForecastRecord, error) {
	table := ForecastStagingTable(r.tables.ForecastStaging)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE location_key = $1 AND date = $2",
		quoteAll(table.ColumnNames()), pq.QuoteIdentifier(table.Name))

	var forecast models.ForecastRecord
	err := r.db.GetContext(ctx, "get_forecast", &forecast, query, locationKey, date)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "forecast",
			ID:       fmt.Sprintf("%d:%s", locationKey, date.Format("2006-01-02")),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forecast: %w", err)
	}

	return &forecast, nil
}

// ListPrecipitationOutlook retrieves the forecast serving table
func (r *reportingRepository) ListPrecipitationOutlook(ctx context.Context, filter DateRangeFilter) ([]*models.PrecipitationOutlook, int, error) {
	table := ForecastServingTable(r.tables.ForecastServing)
	b := newQueryBuilder(fmt.Sprintf("SELECT %s FROM %s", quoteAll(table.ColumnNames()), pq.QuoteIdentifier(table.Name)))

	if filter.StartDate != nil {
		b.where("date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		b.where("date <= $%d", *filter.EndDate)
	}

	var totalCount int
	if err := r.db.GetContext(ctx, "count_precipitation", &totalCount, b.countQuery(), b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count precipitation outlook: %w", err)
	}

	query, args := b.page("date DESC", filter.Limit, filter.Offset)
	var rows []*models.PrecipitationOutlook
	if err := r.db.SelectContext(ctx, "list_precipitation", &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list precipitation outlook: %w", err)
	}

	return rows, totalCount, nil
}

// ListUVCategories retrieves the current-conditions serving table
func (r *reportingRepository) ListUVCategories(ctx context.Context, filter UVFilter) ([]*models.UVCategory, int, error) {
	table := CurrentConditionsServingTable(r.tables.CurrentConditionsServing)
	b := newQueryBuilder(fmt.Sprintf("SELECT %s FROM %s", quoteAll(table.ColumnNames()), pq.QuoteIdentifier(table.Name)))

	if filter.LocationKey != nil {
		b.where("location_key = $%d", *filter.LocationKey)
	}
	if filter.StartDate != nil {
		b.where("date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		b.where("date <= $%d", *filter.EndDate)
	}

	var totalCount int
	if err := r.db.GetContext(ctx, "count_uv", &totalCount, b.countQuery(), b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count uv categories: %w", err)
	}

	query, args := b.page("date DESC, location_key, location_name", filter.Limit, filter.Offset)
	var rows []*models.UVCategory
	if err := r.db.SelectContext(ctx, "list_uv", &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list uv categories: %w", err)
	}

	return rows, totalCount, nil
}

// HealthCheck performs a repository health check
func (r *reportingRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
