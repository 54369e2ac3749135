// Package pipeline drives one ETL run: forecast extract, flatten, staging
// upsert and serving transform, then the same for current conditions when a
// location name is configured. Every run is recorded in the pipeline's run log.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"weather-etl/internal/config"
	"weather-etl/internal/models"
	"weather-etl/internal/notify"
	"weather-etl/internal/repository"
	"weather-etl/internal/services"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

// Ingester stages one dataset
type Ingester interface {
	IngestForecast(ctx context.Context, locationKey, days int, tableName string) (*services.IngestionResult, error)
	IngestCurrentConditions(ctx context.Context, locationName, tableName string) (*services.IngestionResult, error)
}

// Transformer loads a serving table from a template directory
type Transformer interface {
	Run(ctx context.Context, req services.TransformRequest) ([]services.TemplateResult, error)
}

// Dependencies are the collaborators a Driver orchestrates
type Dependencies struct {
	Ingester    Ingester
	Transformer Transformer
	Runs        repository.RunLogRepository
	Notifier    notify.Notifier
	Logger      *logging.StructuredLogger
	Metrics     *metrics.Collector
}

// Result summarises a run
type Result struct {
	RunID             string
	Status            models.RunStatus
	Forecast          *services.IngestionResult
	ForecastTemplates []services.TemplateResult
	Current           *services.IngestionResult
	CurrentTemplates  []services.TemplateResult
	LogPath           string
	Duration          time.Duration
}

// Driver runs a configured pipeline
type Driver struct {
	pipeline *config.Pipeline
	deps     Dependencies
	now      func() time.Time
	newID    func() string
}

// Option configures a Driver
type Option func(*Driver)

// WithClock overrides the run timestamp source
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithRunIDs overrides run ID generation
func WithRunIDs(newID func() string) Option {
	return func(d *Driver) { d.newID = newID }
}

// New creates a driver. A nil Notifier publishes nothing.
func New(p *config.Pipeline, deps Dependencies, opts ...Option) *Driver {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	d := &Driver{
		pipeline: p,
		deps:     deps,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the pipeline once. Any step failure aborts the remaining steps,
// is recorded in the run log together with the captured logs and is returned.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	p := d.pipeline
	logger := d.deps.Logger

	result := &Result{RunID: d.newID(), Status: models.RunPending}
	ctx = logging.WithRun(ctx, p.Name, result.RunID)
	startedAt := d.now()

	capture, err := logging.StartCapture(logger, p.Name, p.Config.LogFolderPath, startedAt)
	if err != nil {
		return result, fmt.Errorf("failed to start run log capture: %w", err)
	}
	result.LogPath = capture.Path()

	run := &models.PipelineRun{
		RunID:        result.RunID,
		PipelineName: p.Name,
		Status:       models.RunPending,
		Config:       d.configSnapshot(),
		StartedAt:    startedAt,
	}

	logger.Info(ctx, "[PIPELINE_START] Starting pipeline run", logging.Fields{
		"location_key":  p.Config.LocationKey,
		"location_name": p.Config.LocationName,
		"forecast_days": p.Config.ForecastDays,
		"log_file":      result.LogPath,
		"stage":         "INITIALIZATION",
	})
	d.record(ctx, run)

	runErr := d.execute(ctx, result)

	endedAt := d.now()
	result.Duration = endedAt.Sub(startedAt)
	run.EndedAt = &endedAt

	if runErr != nil {
		result.Status = models.RunFailure
		logger.Error(ctx, "[PIPELINE_FAILED] Pipeline run failed", logging.Fields{
			"duration_seconds": result.Duration.Seconds(),
			"stage":            "FAILED",
		}, runErr)
	} else {
		result.Status = models.RunSuccess
		logger.Info(ctx, "[PIPELINE_COMPLETE] Pipeline run completed", logging.Fields{
			"duration_seconds": result.Duration.Seconds(),
			"stage":            "COMPLETE",
		})
	}

	run.Status = result.Status
	run.Logs = capture.Logs()
	d.record(ctx, run)

	d.deps.Metrics.RecordPipelineRun(string(result.Status), result.Duration)
	d.publish(ctx, run, runErr)

	if err := capture.Close(); err != nil {
		logger.Warn(ctx, "[PIPELINE_TEARDOWN] Failed to close run log file", logging.Fields{
			"log_file": result.LogPath,
			"error":    err.Error(),
		})
	}

	return result, runErr
}

// Close releases the notifier
func (d *Driver) Close() error {
	return d.deps.Notifier.Close()
}

func (d *Driver) execute(ctx context.Context, result *Result) error {
	cfg := d.pipeline.Config

	forecast, err := d.deps.Ingester.IngestForecast(ctx, cfg.LocationKey, cfg.ForecastDays, cfg.StagingTableName)
	if err != nil {
		return err
	}
	result.Forecast = forecast

	result.ForecastTemplates, err = d.deps.Transformer.Run(ctx, services.TransformRequest{
		SourceTable: cfg.StagingTableName,
		Target:      repository.ForecastServingTable(cfg.ServingTableName),
		TemplateDir: cfg.TransformTemplatePath,
	})
	if err != nil {
		return fmt.Errorf("forecast serving transform: %w", err)
	}

	if !d.pipeline.CurrentConditionsEnabled() {
		d.deps.Logger.Debug(ctx, "[PIPELINE_CURRENT_DISABLED] No location name configured, skipping current conditions", logging.Fields{})
		return nil
	}

	current, err := d.deps.Ingester.IngestCurrentConditions(ctx, cfg.LocationName, cfg.StagingTableNameCurrentConditions)
	if err != nil {
		return err
	}
	result.Current = current

	result.CurrentTemplates, err = d.deps.Transformer.Run(ctx, services.TransformRequest{
		SourceTable: cfg.StagingTableNameCurrentConditions,
		Target:      repository.CurrentConditionsServingTable(cfg.ServingTableNameCurrentConditions),
		TemplateDir: cfg.TransformTemplatePathCurrentConditions,
	})
	if err != nil {
		return fmt.Errorf("current conditions serving transform: %w", err)
	}

	return nil
}

// record writes the run log row. Failures are logged and otherwise ignored so
// they never replace the pipeline's own error.
func (d *Driver) record(ctx context.Context, run *models.PipelineRun) {
	if err := d.deps.Runs.Record(ctx, run); err != nil {
		d.deps.Logger.Error(ctx, "[PIPELINE_RUN_LOG_ERROR] Failed to record run status", logging.Fields{
			"status": string(run.Status),
		}, err)
	}
}

func (d *Driver) publish(ctx context.Context, run *models.PipelineRun, runErr error) {
	event := notify.RunEvent{
		RunID:     run.RunID,
		Pipeline:  run.PipelineName,
		Status:    string(run.Status),
		StartedAt: run.StartedAt,
	}
	if run.EndedAt != nil {
		event.EndedAt = *run.EndedAt
	}
	if runErr != nil {
		event.Error = runErr.Error()
	}

	if err := d.deps.Notifier.Publish(ctx, event); err != nil {
		d.deps.Logger.Warn(ctx, "[PIPELINE_NOTIFY_ERROR] Failed to publish run event", logging.Fields{
			"error": err.Error(),
		})
	}
}

func (d *Driver) configSnapshot() string {
	data, err := yaml.Marshal(d.pipeline)
	if err != nil {
		return ""
	}
	return string(data)
}
