package models

import "time"

// RunStatus is the lifecycle state recorded in the pipeline run log
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunSuccess RunStatus = "success"
	RunFailure RunStatus = "failure"
)

// Valid reports whether s is one of the known statuses
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunSuccess, RunFailure:
		return true
	}
	return false
}

// PipelineRun is one row of the run log. A run is inserted as pending and
// later overwritten with its final status and captured logs.
type PipelineRun struct {
	RunID        string     `json:"run_id" db:"run_id"`
	PipelineName string     `json:"pipeline_name" db:"pipeline_name"`
	Status       RunStatus  `json:"status" db:"status"`
	Config       string     `json:"config" db:"config"`
	Logs         string     `json:"logs" db:"logs"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}
