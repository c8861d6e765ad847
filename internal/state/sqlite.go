package state

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the history database at path and runs pending
// migrations. Use ":memory:" for an in-memory database.
func Open(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate applies all pending embedded migrations.
func (s *SQLiteStore) migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// SaveRun records a run and its per-document outcomes in one transaction.
func (s *SQLiteStore) SaveRun(run *Run, outcomes []DocumentOutcome) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO runs (id, metadata_dir, status, started_at, duration_ms, documents, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.MetadataDir, string(run.Status), run.StartedAt,
		run.Duration.Milliseconds(), run.Documents, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, o := range outcomes {
		_, err = tx.Exec(
			`INSERT INTO outcomes (run_id, document, kind, passed, violation, message)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, o.Document, o.Kind, boolToInt(o.Passed), o.Violation, o.Message,
		)
		if err != nil {
			return fmt.Errorf("insert outcome for %s: %w", o.Document, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, metadata_dir, status, started_at, duration_ms, documents, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run        Run
			status     string
			durationMS int64
			startedAt  time.Time
		)
		if err := rows.Scan(&run.ID, &run.MetadataDir, &status, &startedAt, &durationMS, &run.Documents, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = RunStatus(status)
		run.StartedAt = startedAt
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// GetOutcomes returns the recorded outcomes of one run, ordered by kind then
// document name.
func (s *SQLiteStore) GetOutcomes(runID string) ([]DocumentOutcome, error) {
	rows, err := s.db.Query(
		`SELECT run_id, document, kind, passed, violation, message
		 FROM outcomes WHERE run_id = ? ORDER BY kind, document`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []DocumentOutcome
	for rows.Next() {
		var (
			o      DocumentOutcome
			passed int
		)
		if err := rows.Scan(&o.RunID, &o.Document, &o.Kind, &passed, &o.Violation, &o.Message); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Passed = passed != 0
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
