package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/inteliome-labs/semalint/internal/cli/output"
	"github.com/inteliome-labs/semalint/internal/engine"
	"github.com/inteliome-labs/semalint/internal/state"
)

// watchDebounce coalesces editor save bursts into one re-run.
const watchDebounce = 300 * time.Millisecond

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Dir    string // Metadata directory override
	Format string // Output format override: text, markdown, json
	Watch  bool   // Re-validate on file changes
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate schema and semantics documents",
		Long: `Validate every metadata document under the metadata directory.

Schema documents (schema/assets/*.yaml) are checked first, then semantics
documents (semantics/assets/*.yaml) are checked against them. Each document
is validated independently, so one broken file never hides problems in
another.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Validate the configured metadata directory
  semalint validate

  # Validate a specific directory
  semalint validate ./metadata

  # Re-validate whenever a file changes
  semalint validate --watch

  # Output as JSON
  semalint validate --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Dir = args[0]
			}
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-validate when metadata files change")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	if opts.Dir != "" {
		cfg.MetadataDir = opts.Dir
	}
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	if err := cfg.ValidateDirectories(); err != nil {
		return err
	}

	eng := newEngine(cfg, cmdCtx.Logger)

	var store *state.SQLiteStore
	if !cfg.NoHistory {
		var err error
		store, err = openStore(cfg)
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	if opts.Watch {
		return watchValidate(cmd, eng, store, r, cfg.MetadataDir)
	}

	result, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}
	recordRun(cmdCtx, store, result)

	renderValidateResult(r, result)
	if failed := result.Failed(); failed > 0 {
		return fmt.Errorf("validation failed: %d of %d documents", failed, len(result.Outcomes))
	}
	return nil
}

// watchValidate runs validation once, then again on every change under the
// metadata directory. It blocks until the command context is canceled.
func watchValidate(cmd *cobra.Command, eng *engine.Engine, store *state.SQLiteStore, r *output.Renderer, dir string) error {
	cmdCtx := NewCommandContext(cmd)

	runOnce := func() {
		result, err := eng.Run(cmd.Context())
		if err != nil {
			r.Error(err.Error())
			return
		}
		recordRun(cmdCtx, store, result)
		renderValidateResult(r, result)
	}
	runOnce()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// fsnotify does not recurse, so register every subdirectory.
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	r.Println("")
	r.Printf("Watching %s for changes (ctrl-c to stop)\n", dir)

	var debounce *time.Timer
	runs := make(chan struct{}, 1)
	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-runs:
			runOnce()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantChange(event) {
				continue
			}
			// New directories need to be watched too.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case runs <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.Error(err.Error())
		}
	}
}

// relevantChange filters watch events down to YAML edits and directory
// creation.
func relevantChange(event fsnotify.Event) bool {
	if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		return true
	}
	if !event.Op.Has(fsnotify.Write) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".yaml" || ext == ".yml"
}

// recordRun persists a run to the history store. History failures are logged,
// never fatal: validation results matter more than bookkeeping.
func recordRun(cmdCtx *CommandContext, store *state.SQLiteStore, result *engine.Result) {
	if store == nil {
		return
	}

	status := state.RunStatusPassed
	if result.Failed() > 0 {
		status = state.RunStatusFailed
	}
	run := &state.Run{
		ID:          result.RunID,
		MetadataDir: result.MetadataDir,
		Status:      status,
		StartedAt:   result.StartedAt,
		Duration:    result.Duration,
		Documents:   len(result.Outcomes),
		Failed:      result.Failed(),
	}

	outcomes := make([]state.DocumentOutcome, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		do := state.DocumentOutcome{
			RunID:    result.RunID,
			Document: o.Document,
			Kind:     string(o.Kind),
			Passed:   o.Passed(),
			Message:  o.Message(),
		}
		if o.Violation != nil {
			do.Violation = o.Violation.Kind.String()
		}
		outcomes = append(outcomes, do)
	}

	if err := store.SaveRun(run, outcomes); err != nil {
		cmdCtx.Logger.Warn("failed to record run history", "run_id", result.RunID, "error", err)
	}
}

// validateJSONOutput is the JSON shape of a validation run.
type validateJSONOutput struct {
	RunID       string                `json:"run_id"`
	MetadataDir string                `json:"metadata_dir"`
	StartedAt   time.Time             `json:"started_at"`
	DurationMS  int64                 `json:"duration_ms"`
	Documents   int                   `json:"documents"`
	Passed      int                   `json:"passed"`
	Failed      int                   `json:"failed"`
	Outcomes    []validateJSONOutcome `json:"outcomes"`
}

type validateJSONOutcome struct {
	Document  string `json:"document"`
	Kind      string `json:"kind"`
	Passed    bool   `json:"passed"`
	Violation string `json:"violation,omitempty"`
	Message   string `json:"message,omitempty"`
}

func renderValidateResult(r *output.Renderer, result *engine.Result) {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		renderValidateJSON(r, result)
	case output.ModeMarkdown:
		renderValidateMarkdown(r, result)
	default:
		renderValidateText(r, result)
	}
}

func renderValidateJSON(r *output.Renderer, result *engine.Result) {
	out := validateJSONOutput{
		RunID:       result.RunID,
		MetadataDir: result.MetadataDir,
		StartedAt:   result.StartedAt,
		DurationMS:  result.Duration.Milliseconds(),
		Documents:   len(result.Outcomes),
		Passed:      result.Passed(),
		Failed:      result.Failed(),
	}
	for _, o := range result.Outcomes {
		jo := validateJSONOutcome{
			Document: o.Document,
			Kind:     string(o.Kind),
			Passed:   o.Passed(),
		}
		if !o.Passed() {
			jo.Message = o.Message()
		}
		if o.Violation != nil {
			jo.Violation = o.Violation.Kind.String()
		}
		out.Outcomes = append(out.Outcomes, jo)
	}
	_ = r.JSON(out)
}

func renderValidateText(r *output.Renderer, result *engine.Result) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Validating %s", result.MetadataDir)))
	r.Println("")

	for _, o := range result.Outcomes {
		label := fmt.Sprintf("%s %s", o.Kind, o.Document)
		if o.Passed() {
			r.Success(label)
			continue
		}
		r.Error(fmt.Sprintf("%s: %s", label, o.Message()))
	}

	r.Println("")
	renderSummaryTable(r, result)
	r.Println("")

	if failed := result.Failed(); failed > 0 {
		r.Println(styles.Error.Render(fmt.Sprintf("FAILED: %d of %d documents", failed, len(result.Outcomes))))
	} else {
		r.Println(styles.Success.Render(fmt.Sprintf("PASSED: %d documents in %s", len(result.Outcomes), result.Duration.Round(time.Millisecond))))
	}
}

func renderSummaryTable(r *output.Renderer, result *engine.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Documents", "Passed", "Failed"})

	counts := map[engine.DocumentKind][3]int{}
	for _, o := range result.Outcomes {
		c := counts[o.Kind]
		c[0]++
		if o.Passed() {
			c[1]++
		} else {
			c[2]++
		}
		counts[o.Kind] = c
	}
	for _, kind := range []engine.DocumentKind{engine.KindSchema, engine.KindSemantics} {
		c, ok := counts[kind]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{string(kind), c[0], c[1], c[2]})
	}
	t.AppendFooter(table.Row{"total", len(result.Outcomes), result.Passed(), result.Failed()})
	t.Render()
}

func renderValidateMarkdown(r *output.Renderer, result *engine.Result) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Validation: %s", result.MetadataDir)))
	r.Println("")
	r.Printf("Run `%s` checked %d documents in %s: %d passed, %d failed.\n",
		result.RunID, len(result.Outcomes), result.Duration.Round(time.Millisecond),
		result.Passed(), result.Failed())
	r.Println("")

	r.Println("| Document | Kind | Result |")
	r.Println("|----------|------|--------|")
	for _, o := range result.Outcomes {
		res := "ok"
		if !o.Passed() {
			res = o.Message()
		}
		r.Printf("| %s | %s | %s |\n", o.Document, o.Kind, res)
	}
	r.Println("")
}
