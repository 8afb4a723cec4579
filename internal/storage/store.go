package storage

import (
	"context"
	"errors"
	"time"

	"ferrolint/internal/rules"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded scan.
type Run struct {
	ID          string
	StartedAt   time.Time
	ToolVersion string
	Files       int
	Findings    []rules.Finding
	Errors      []RunError
}

// RunError is a file that failed during a recorded scan.
type RunError struct {
	Path    string
	Message string
}

// RunSummary is the listing view of a Run.
type RunSummary struct {
	ID          string
	StartedAt   time.Time
	ToolVersion string
	Files       int
	Findings    int
	Errors      int
}

// RunStore persists scan results.
type RunStore interface {
	// SaveRun stores run, assigning an ID when it has none.
	SaveRun(ctx context.Context, run *Run) error

	// LoadRun retrieves a run with its findings in their saved order.
	LoadRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// Fingerprints returns the finding fingerprints of a run.
	Fingerprints(ctx context.Context, id string) (map[string]bool, error)

	Close() error
}
