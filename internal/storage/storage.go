package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no run matches a lookup.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguous is returned when an ID prefix matches more than one run.
var ErrAmbiguous = errors.New("ambiguous run prefix")

// RunKind distinguishes how a run entered the system.
type RunKind string

const (
	KindExecute  RunKind = "execute"  // caller supplied the code
	KindGenerate RunKind = "generate" // code came from the generator
)

// Run is one recorded execution: the snippet, where it came from, and
// the classified outcome. Runs are final; they are written once after
// the attempt settles and never updated.
type Run struct {
	ID            string    `json:"id"`
	Kind          RunKind   `json:"kind"`
	Prompt        string    `json:"prompt,omitempty"` // for generated runs
	Model         string    `json:"model,omitempty"`  // generator model, if any
	Code          string    `json:"code"`
	Explanation   string    `json:"explanation,omitempty"` // generator prose about the code
	Success       bool      `json:"success"`
	Output        string    `json:"output"`
	Stderr        string    `json:"stderr,omitempty"`
	Error         string    `json:"error,omitempty"`
	Truncated     bool      `json:"truncated"`
	ExecutionTime float64   `json:"execution_time_seconds"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunListOptions controls filtering and pagination for ListRuns.
type RunListOptions struct {
	Kind   RunKind
	Limit  int
	Offset int
}

// Stats summarizes recorded runs.
type Stats struct {
	TotalRuns  int     `json:"total_runs"`
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
	Generated  int     `json:"generated"`
	AvgSeconds float64 `json:"avg_execution_seconds"`
}

// Store is the persistence interface for run history.
type Store interface {
	// CreateRun inserts a finished run. The ID field must be set by the caller.
	CreateRun(ctx context.Context, r *Run) error

	// GetRun returns a run by ID or unambiguous ID prefix.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs ordered by created_at descending.
	ListRuns(ctx context.Context, opts RunListOptions) ([]Run, error)

	// DeleteRun removes a run by ID or unambiguous ID prefix.
	DeleteRun(ctx context.Context, id string) error

	// Stats aggregates counts and timing over all recorded runs.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases resources.
	Close() error
}
