// Package state records validation run history in a local SQLite database.
// The validation engine itself is persistence-free; this store belongs to the
// CLI side and only consumes the engine's outcomes.
package state

import "time"

// RunStatus is the terminal status of a recorded run.
type RunStatus string

const (
	RunStatusPassed RunStatus = "passed"
	RunStatusFailed RunStatus = "failed"
)

// Run is one recorded validation run.
type Run struct {
	ID          string
	MetadataDir string
	Status      RunStatus
	StartedAt   time.Time
	Duration    time.Duration
	Documents   int
	Failed      int
}

// DocumentOutcome is one document's recorded result within a run.
type DocumentOutcome struct {
	RunID     string
	Document  string
	Kind      string // schema or semantics
	Passed    bool
	Violation string // violation kind, empty on pass
	Message   string
}

// Store persists run history.
type Store interface {
	// SaveRun records a run together with its per-document outcomes.
	SaveRun(run *Run, outcomes []DocumentOutcome) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// GetOutcomes returns the recorded outcomes of one run.
	GetOutcomes(runID string) ([]DocumentOutcome, error)

	Close() error
}
