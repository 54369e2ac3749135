package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-etl/internal/config"
	"weather-etl/internal/models"
	"weather-etl/internal/notify"
	"weather-etl/internal/repository"
	"weather-etl/internal/services"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

type fakeIngester struct {
	forecastErr error
	currentErr  error
	calls       []string
}

func (f *fakeIngester) IngestForecast(ctx context.Context, locationKey, days int, tableName string) (*services.IngestionResult, error) {
	f.calls = append(f.calls, "forecast:"+tableName)
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	return &services.IngestionResult{Table: tableName, Fetched: days, Upserted: days}, nil
}

func (f *fakeIngester) IngestCurrentConditions(ctx context.Context, locationName, tableName string) (*services.IngestionResult, error) {
	f.calls = append(f.calls, "current:"+tableName)
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	return &services.IngestionResult{Table: tableName, Fetched: 1, Upserted: 1}, nil
}

type fakeTransformer struct {
	err      error
	requests []services.TransformRequest
}

func (f *fakeTransformer) Run(ctx context.Context, req services.TransformRequest) ([]services.TemplateResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return []services.TemplateResult{{Template: "01.sql", State: services.StateLoaded}}, nil
}

type fakeRuns struct {
	recorded []models.PipelineRun
	err      error
}

func (f *fakeRuns) Record(ctx context.Context, run *models.PipelineRun) error {
	f.recorded = append(f.recorded, *run)
	return f.err
}

func (f *fakeRuns) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	return nil, &repository.NotFoundError{Resource: "pipeline_run", ID: runID}
}

func (f *fakeRuns) ListRuns(ctx context.Context, filter repository.RunFilter) ([]*models.PipelineRun, int, error) {
	return nil, 0, nil
}

type fakeNotifier struct {
	events []notify.RunEvent
	err    error
	closed bool
}

func (f *fakeNotifier) Publish(ctx context.Context, event notify.RunEvent) error {
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

type harness struct {
	ingester    *fakeIngester
	transformer *fakeTransformer
	runs        *fakeRuns
	notifier    *fakeNotifier
	collector   *metrics.Collector
	output      *bytes.Buffer
}

func testPipeline(locationName string) *config.Pipeline {
	return &config.Pipeline{
		Name: "accuweather",
		Config: config.PipelineSettings{
			LocationKey:                            28143,
			LocationName:                           locationName,
			ForecastDays:                           5,
			StagingTableName:                       "forecast_staging",
			ServingTableName:                       "forecast_serving",
			TransformTemplatePath:                  "templates/forecast",
			StagingTableNameCurrentConditions:      "current_staging",
			ServingTableNameCurrentConditions:      "current_serving",
			TransformTemplatePathCurrentConditions: "templates/current_conditions",
		},
	}
}

func newDriver(t *testing.T, p *config.Pipeline) (*Driver, *harness) {
	t.Helper()
	h := &harness{
		ingester:    &fakeIngester{},
		transformer: &fakeTransformer{},
		runs:        &fakeRuns{},
		notifier:    &fakeNotifier{},
		collector:   metrics.NewCollector("test", prometheus.NewRegistry()),
		output:      &bytes.Buffer{},
	}

	logger := logging.NewStructuredLogger("test", "test", logging.DebugLevel)
	logger.SetOutput(h.output)

	start := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return start.Add(time.Duration(ticks-1) * time.Minute)
	}

	d := New(p, Dependencies{
		Ingester:    h.ingester,
		Transformer: h.transformer,
		Runs:        h.runs,
		Notifier:    h.notifier,
		Logger:      logger,
		Metrics:     h.collector,
	}, WithClock(clock), WithRunIDs(func() string { return "run-1" }))

	return d, h
}

func TestRun_SuccessWithCurrentConditions(t *testing.T) {
	d, h := newDriver(t, testPipeline("Dhaka"))

	result, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.RunSuccess, result.Status)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, time.Minute, result.Duration)
	assert.Equal(t, []string{"forecast:forecast_staging", "current:current_staging"}, h.ingester.calls)

	require.Len(t, h.transformer.requests, 2)
	assert.Equal(t, "forecast_staging", h.transformer.requests[0].SourceTable)
	assert.Equal(t, "forecast_serving", h.transformer.requests[0].Target.Name)
	assert.Equal(t, "current_staging", h.transformer.requests[1].SourceTable)
	assert.Equal(t, "current_serving", h.transformer.requests[1].Target.Name)

	require.Len(t, h.runs.recorded, 2)
	assert.Equal(t, models.RunPending, h.runs.recorded[0].Status)
	assert.Nil(t, h.runs.recorded[0].EndedAt)
	assert.Contains(t, h.runs.recorded[0].Config, "location_key: 28143")

	final := h.runs.recorded[1]
	assert.Equal(t, models.RunSuccess, final.Status)
	assert.Equal(t, "accuweather", final.PipelineName)
	require.NotNil(t, final.EndedAt)
	assert.Contains(t, final.Logs, "[PIPELINE_START]")
	assert.Contains(t, final.Logs, "[PIPELINE_COMPLETE]")

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, "success", h.notifier.events[0].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.collector.PipelineRunsTotal.WithLabelValues("success")))
}

func TestRun_SkipsCurrentConditionsWithoutLocationName(t *testing.T) {
	d, h := newDriver(t, testPipeline(""))

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"forecast:forecast_staging"}, h.ingester.calls)
	assert.Len(t, h.transformer.requests, 1)
}

func TestRun_FailureAbortsRemainingSteps(t *testing.T) {
	d, h := newDriver(t, testPipeline("Dhaka"))
	h.ingester.forecastErr = &models.LookupError{Path: "Day.Wind.Speed.Value"}

	result, err := d.Run(context.Background())

	var lookupErr *models.LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, models.RunFailure, result.Status)
	assert.Equal(t, []string{"forecast:forecast_staging"}, h.ingester.calls)
	assert.Empty(t, h.transformer.requests)

	require.Len(t, h.runs.recorded, 2)
	final := h.runs.recorded[1]
	assert.Equal(t, models.RunFailure, final.Status)
	assert.Contains(t, final.Logs, "[PIPELINE_FAILED]")
	assert.Contains(t, final.Logs, "Day.Wind.Speed.Value")

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, "failure", h.notifier.events[0].Status)
	assert.NotEmpty(t, h.notifier.events[0].Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.collector.PipelineRunsTotal.WithLabelValues("failure")))
}

func TestRun_TransformFailureSkipsCurrentConditions(t *testing.T) {
	d, h := newDriver(t, testPipeline("Dhaka"))
	h.transformer.err = &models.ConfigError{Source: "01.sql", Message: "extract type \"snapshot\" is not supported"}

	_, err := d.Run(context.Background())

	var cfgErr *models.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"forecast:forecast_staging"}, h.ingester.calls)
}

func TestRun_RunLogErrorDoesNotMaskOutcome(t *testing.T) {
	d, h := newDriver(t, testPipeline(""))
	h.runs.err = errors.New("database unavailable")

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunSuccess, result.Status)
	assert.Contains(t, h.output.String(), "[PIPELINE_RUN_LOG_ERROR]")

	h.ingester.forecastErr = errors.New("boom")
	_, err = d.Run(context.Background())
	assert.EqualError(t, err, "boom")
}

func TestRun_NotifierErrorIsIgnored(t *testing.T) {
	d, h := newDriver(t, testPipeline(""))
	h.notifier.err = errors.New("redis down")

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, h.output.String(), "[PIPELINE_NOTIFY_ERROR]")

	require.NoError(t, d.Close())
	assert.True(t, h.notifier.closed)
}

func TestRun_WritesRunLogFile(t *testing.T) {
	p := testPipeline("")
	p.Config.LogFolderPath = t.TempDir()
	d, _ := newDriver(t, p)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.LogPath)

	data, err := os.ReadFile(result.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[PIPELINE_COMPLETE]")
}
