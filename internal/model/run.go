package model

import "time"

// RunStatus tracks the lifecycle of an enrichment run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded enrichment run.
type Run struct {
	ID         string      `json:"id"`
	InputPath  string      `json:"input_path"`
	OutputPath string      `json:"output_path"`
	StartIdx   int         `json:"start_idx"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// RunSummary holds the final counters and fill rates of a completed run.
type RunSummary struct {
	Records    int                    `json:"records"`
	Skipped    int                    `json:"skipped"`
	Batches    int                    `json:"batches"`
	Sources    map[string]SourceTally `json:"sources"`
	FillRates  map[string]float64     `json:"fill_rates"`
	DurationMS int64                  `json:"duration_ms"`
}

// SourceTally counts per-source outcomes across a run.
type SourceTally struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}
