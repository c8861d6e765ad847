// Package engine orchestrates a validation run: it loads the metadata
// directory, validates every schema document independently, then validates
// every semantics document against the schema collection, and collects
// per-document outcomes. Documents share no mutable state, so they are
// checked concurrently.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/inteliome-labs/semalint/internal/loader"
	"github.com/inteliome-labs/semalint/pkg/metadata"
	"github.com/inteliome-labs/semalint/pkg/validate"
	schemaval "github.com/inteliome-labs/semalint/pkg/validate/schema"
	semval "github.com/inteliome-labs/semalint/pkg/validate/semantics"
)

// DocumentKind tells which validator produced an outcome.
type DocumentKind string

const (
	KindSchema    DocumentKind = "schema"
	KindSemantics DocumentKind = "semantics"
)

// Outcome is the result of validating one document.
type Outcome struct {
	Document string
	Kind     DocumentKind

	// Violation is set when a recognized rule was broken.
	Violation *validate.Violation

	// Err is set for engine defects: failures outside the rule taxonomy.
	Err error
}

// Passed reports whether the document validated cleanly.
func (o Outcome) Passed() bool { return o.Violation == nil && o.Err == nil }

// Message renders the outcome for reports.
func (o Outcome) Message() string {
	switch {
	case o.Violation != nil:
		return o.Violation.Error()
	case o.Err != nil:
		return fmt.Sprintf("unexpected error: %v", o.Err)
	default:
		return "ok"
	}
}

// Result summarizes one validation run.
type Result struct {
	RunID       string
	MetadataDir string
	StartedAt   time.Time
	Duration    time.Duration
	Outcomes    []Outcome
}

// Failed counts documents that did not pass.
func (r *Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Passed() {
			n++
		}
	}
	return n
}

// Passed counts documents that validated cleanly.
func (r *Result) Passed() int { return len(r.Outcomes) - r.Failed() }

// Config configures an engine.
type Config struct {
	// MetadataDir is the root of the metadata tree to validate.
	MetadataDir string

	// Concurrency bounds parallel document validation. Zero means GOMAXPROCS.
	Concurrency int

	// Logger receives run progress. Nil discards.
	Logger *slog.Logger
}

// Engine runs validation over a metadata directory.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	loader *loader.Loader
}

// New creates an engine from cfg.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		loader: loader.New(logger),
	}
}

// Run loads the metadata directory and validates every document. The error
// return covers run-level failures (unreadable directory, cancellation);
// per-document failures land in the result's outcomes.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	started := time.Now().UTC()
	runID := uuid.New().String()
	e.logger.Info("starting validation run", "run_id", runID, "dir", e.cfg.MetadataDir)

	schemas, semantics, err := e.loader.LoadDir(e.cfg.MetadataDir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:       runID,
		MetadataDir: e.cfg.MetadataDir,
		StartedAt:   started,
	}
	result.Outcomes = append(result.Outcomes, e.validateAll(ctx, KindSchema, schemas, nil)...)
	result.Outcomes = append(result.Outcomes, e.validateAll(ctx, KindSemantics, semantics, schemas)...)
	result.Duration = time.Since(started)

	e.logger.Info("validation run complete",
		"run_id", runID,
		"documents", len(result.Outcomes),
		"failed", result.Failed(),
		"duration", result.Duration,
	)
	return result, nil
}

// validateAll checks a batch of documents concurrently. Each document gets
// its own validator state; outcomes are written to fixed slots so no lock is
// needed, then sorted by name for stable reporting.
func (e *Engine) validateAll(ctx context.Context, kind DocumentKind, docs, schemas []metadata.Document) []Outcome {
	outcomes := make([]Outcome, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Document: doc.Name, Kind: kind, Err: err}
				return nil
			}
			outcomes[i] = e.validateOne(kind, doc, schemas)
			return nil
		})
	}
	// Workers never return errors; failures are recorded as outcomes.
	_ = g.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Document < outcomes[j].Document })
	return outcomes
}

func (e *Engine) validateOne(kind DocumentKind, doc metadata.Document, schemas []metadata.Document) Outcome {
	var v validate.Validator
	switch kind {
	case KindSchema:
		v = schemaval.New()
	case KindSemantics:
		v = semval.New()
	}
	err := v.Validate(doc, validate.Context{Schemas: schemas})

	out := Outcome{Document: doc.Name, Kind: kind}
	if err != nil {
		if v, ok := validate.AsViolation(err); ok {
			out.Violation = v
			e.logger.Error("validation failed", "kind", kind, "document", doc.Name, "violation", v.Kind.String(), "error", v)
		} else {
			out.Err = err
			e.logger.Error("unexpected validation error", "kind", kind, "document", doc.Name, "error", err)
		}
		return out
	}
	e.logger.Info("validation passed", "kind", kind, "document", doc.Name)
	return out
}
