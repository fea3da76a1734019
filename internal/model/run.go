package model

import "time"

// RunStatus represents the state of a pipeline stage run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageIngest    Stage = "ingest"
	StageAggregate Stage = "aggregate"
	StageFeatures  Stage = "features"
	StageCluster   Stage = "cluster"
)

// Run records one execution of a pipeline stage.
type Run struct {
	ID         string     `json:"id"`
	Stage      Stage      `json:"stage"`
	Status     RunStatus  `json:"status"`
	RowsIn     int        `json:"rows_in"`
	RowsOut    int        `json:"rows_out"`
	Skipped    int        `json:"skipped"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunResult is the outcome recorded when a stage run finishes.
type RunResult struct {
	RowsIn  int
	RowsOut int
	Skipped int
	Err     error
}
