package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"weather-etl/internal/models"
	"weather-etl/pkg/database"
	"weather-etl/pkg/logging"
)

// RunLogRepository persists pipeline runs, one row per run keyed by run ID
type RunLogRepository interface {
	// Record inserts the run or overwrites the row with the same run ID
	Record(ctx context.Context, run *models.PipelineRun) error
	GetRun(ctx context.Context, runID string) (*models.PipelineRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*models.PipelineRun, int, error)
}

// RunFilter defines filters for listing runs
type RunFilter struct {
	Status *models.RunStatus
	Limit  int
	Offset int
}

type runLogRepository struct {
	conn   Connector
	db     *database.PostgresDB
	table  Table
	logger *logging.StructuredLogger
}

// NewRunLogRepository stores runs in tableName, creating it on first write
func NewRunLogRepository(conn Connector, db *database.PostgresDB, tableName string, logger *logging.StructuredLogger) RunLogRepository {
	return &runLogRepository{
		conn:   conn,
		db:     db,
		table:  RunLogTable(tableName),
		logger: logger,
	}
}

func (r *runLogRepository) Record(ctx context.Context, run *models.PipelineRun) error {
	if !run.Status.Valid() {
		return &models.ValidationError{
			Field:   "status",
			Value:   string(run.Status),
			Message: fmt.Sprintf("invalid run status %q", run.Status),
		}
	}

	if _, err := r.conn.Upsert(ctx, r.table, []*models.PipelineRun{run}); err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}

	r.logger.Debug(ctx, "[REPO_RUN_LOG] Run recorded", logging.Fields{
		"run_id": run.RunID,
		"status": string(run.Status),
	})
	return nil
}

func (r *runLogRepository) selectColumns() string {
	return quoteAll(r.table.ColumnNames())
}

func (r *runLogRepository) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE run_id = $1`, r.selectColumns(), pq.QuoteIdentifier(r.table.Name))

	var run models.PipelineRun
	err := r.db.GetContext(ctx, "get_run", &run, query, runID)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "pipeline_run", ID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

func (r *runLogRepository) ListRuns(ctx context.Context, filter RunFilter) ([]*models.PipelineRun, int, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE 1=1`, r.selectColumns(), pq.QuoteIdentifier(r.table.Name))
	args := []interface{}{}
	argNum := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(*filter.Status))
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_runs", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	query += " ORDER BY started_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var runs []*models.PipelineRun
	if err := r.db.SelectContext(ctx, "list_runs", &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, totalCount, nil
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
