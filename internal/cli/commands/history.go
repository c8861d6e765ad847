package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/inteliome-labs/semalint/internal/cli/output"
	"github.com/inteliome-labs/semalint/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit  int    // Maximum number of runs to list
	Format string // Output format override
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past validation runs",
		Long: `Show recorded validation runs, newest first.

With a run ID, shows the per-document outcomes of that run instead.`,
		Example: `  # List recent runs
  semalint history

  # List the last 5 runs
  semalint history --limit 5

  # Show one run's outcomes
  semalint history 3f1c9a2e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRun(cmd, args[0], opts)
			}
			return listRuns(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")

	return cmd
}

func historyRenderer(cmd *cobra.Command, cmdCtx *CommandContext, format string) *output.Renderer {
	if format != "" {
		return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
	}
	return cmdCtx.Renderer
}

func listRuns(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := historyRenderer(cmd, cmdCtx, opts.Format)

	store, err := openStore(cmdCtx.Cfg)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runsJSON(runs))
	}

	if len(runs) == 0 {
		r.Println("No recorded runs. Run 'semalint validate' first.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	if r.EffectiveMode() == output.ModeMarkdown {
		t.SetStyle(table.StyleDefault)
	} else {
		t.SetStyle(table.StyleLight)
	}
	t.AppendHeader(table.Row{"Run", "Started", "Status", "Documents", "Failed", "Duration"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(run.Status),
			run.Documents,
			run.Failed,
			run.Duration.Round(time.Millisecond).String(),
		})
	}
	t.Render()
	return nil
}

func showRun(cmd *cobra.Command, runID string, opts *HistoryOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := historyRenderer(cmd, cmdCtx, opts.Format)

	store, err := openStore(cmdCtx.Cfg)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer func() { _ = store.Close() }()

	outcomes, err := store.GetOutcomes(runID)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return fmt.Errorf("no outcomes recorded for run %q", runID)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(outcomes)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Kind", "Document", "Result", "Detail"})
	for _, o := range outcomes {
		result := "passed"
		detail := ""
		if !o.Passed {
			result = "failed"
			detail = o.Message
		}
		t.AppendRow(table.Row{o.Kind, o.Document, result, detail})
	}
	t.Render()
	return nil
}

// runJSON is the JSON shape of one recorded run.
type runJSON struct {
	ID          string    `json:"id"`
	MetadataDir string    `json:"metadata_dir"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Documents   int       `json:"documents"`
	Failed      int       `json:"failed"`
}

func runsJSON(runs []*state.Run) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON{
			ID:          run.ID,
			MetadataDir: run.MetadataDir,
			Status:      string(run.Status),
			StartedAt:   run.StartedAt,
			DurationMS:  run.Duration.Milliseconds(),
			Documents:   run.Documents,
			Failed:      run.Failed,
		})
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
