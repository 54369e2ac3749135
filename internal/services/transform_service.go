package services

import (
	"context"
	"fmt"
	"time"

	"weather-etl/internal/repository"
	"weather-etl/internal/sqltemplate"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

// TemplateState is how far one template got through the serving transform
type TemplateState string

const (
	StateNotRendered TemplateState = "not_rendered"
	StateRendered    TemplateState = "rendered"
	StateExecuted    TemplateState = "executed"
	StateLoaded      TemplateState = "loaded"
)

// TemplateResult reports the outcome of one template
type TemplateResult struct {
	Template string
	State    TemplateState
	// Skipped is set when the source table did not exist
	Skipped bool
	SQL     string
	Rows    int
}

// TransformRequest describes one serving transform step
type TransformRequest struct {
	SourceTable string
	Target      repository.Table
	TemplateDir string
}

// TransformService renders SQL templates against a staging table and loads
// the results into a serving table.
type TransformService struct {
	conn    repository.Connector
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// TransformOption configures a TransformService
type TransformOption func(*TransformService)

// WithClock overrides the processing date source
func WithClock(now func() time.Time) TransformOption {
	return func(s *TransformService) {
		s.now = now
	}
}

// NewTransformService creates a new serving transform service
func NewTransformService(conn repository.Connector, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, opts ...TransformOption) *TransformService {
	s := &TransformService{
		conn:    conn,
		logger:  logger,
		metrics: metricsCollector,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every template in req.TemplateDir in file name order. A
// template with an unsupported extract type aborts the step. When the source
// table is missing, each template is rendered but neither executed nor loaded.
func (s *TransformService) Run(ctx context.Context, req TransformRequest) ([]TemplateResult, error) {
	timer := s.metrics.NewTimer(s.metrics.TransformDuration.WithLabelValues(req.Target.Name))
	log := s.logger.WithFields(logging.Fields{"target_table": req.Target.Name})

	templates, err := sqltemplate.LoadDir(req.TemplateDir)
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "[TRANSFORM_START] Starting serving transform", logging.Fields{
		"source_table":   req.SourceTable,
		"template_dir":   req.TemplateDir,
		"template_count": len(templates),
		"stage":          "INITIALIZATION",
	})

	sourceExists, err := s.conn.TableExists(ctx, req.SourceTable)
	if err != nil {
		return nil, err
	}

	processingDate := s.now()
	results := make([]TemplateResult, 0, len(templates))

	for _, tmpl := range templates {
		result, err := s.runTemplate(ctx, log, tmpl, req, sourceExists, processingDate)
		results = append(results, result)
		if err != nil {
			s.metrics.RecordTemplateRun(tmpl.Name, "failure")
			log.Error(ctx, "[TRANSFORM_TEMPLATE_ERROR] Template failed", logging.Fields{
				"template": tmpl.Name,
				"state":    string(result.State),
			}, err)
			return results, fmt.Errorf("template %s: %w", tmpl.Name, err)
		}
	}

	duration := timer.ObserveDuration()
	log.Info(ctx, "[TRANSFORM_COMPLETE] Serving transform completed", logging.Fields{
		"templates":        len(results),
		"duration_seconds": duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return results, nil
}

func (s *TransformService) runTemplate(ctx context.Context, log *logging.ContextLogger, tmpl *sqltemplate.Template, req TransformRequest, sourceExists bool, processingDate time.Time) (TemplateResult, error) {
	result := TemplateResult{Template: tmpl.Name, State: StateNotRendered}

	query, err := tmpl.Render(req.SourceTable, processingDate)
	if err != nil {
		return result, err
	}
	result.State = StateRendered
	result.SQL = query

	if !sourceExists {
		result.Skipped = true
		s.metrics.RecordTemplateRun(tmpl.Name, "skipped")
		log.Warn(ctx, "[TRANSFORM_SKIPPED] Source table does not exist", logging.Fields{
			"template":     tmpl.Name,
			"source_table": req.SourceTable,
		})
		return result, nil
	}

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return result, err
	}
	result.State = StateExecuted

	loaded, err := s.conn.Upsert(ctx, req.Target, rows)
	if err != nil {
		return result, err
	}
	result.State = StateLoaded
	result.Rows = loaded

	s.metrics.RecordTemplateRun(tmpl.Name, "success")
	log.Info(ctx, "[TRANSFORM_TEMPLATE_LOADED] Template loaded into serving table", logging.Fields{
		"template":     tmpl.Name,
		"extract_type": string(tmpl.Config.ExtractType),
		"rows":         loaded,
	})

	return result, nil
}
