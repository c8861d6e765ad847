package commands

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inteliome-labs/semalint/internal/cli/output"
	"github.com/inteliome-labs/semalint/pkg/validate"
	"github.com/inteliome-labs/semalint/pkg/validate/calc"
)

// violationDocs describes each violation kind for the rules listing.
var violationDocs = []struct {
	Kind validate.Kind
	Desc string
}{
	{validate.MissingKey, "A required key or referenced entity is absent"},
	{validate.EmptyValue, "A key is present but its value is empty or null"},
	{validate.InvalidFormat, "A value does not match the required shape or grammar"},
	{validate.InvalidKey, "A key is outside the closed key set for its context"},
}

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Format string // Output format override
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List violation kinds and calculation functions",
		Long: `List the violation kinds validation can report and the function
vocabulary accepted in calculation expressions.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List rules
  semalint rules

  # Output as JSON
  semalint rules --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")

	return cmd
}

func runRules(cmd *cobra.Command, opts *RulesOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	groups := calc.Functions()
	groupNames := make([]string, 0, len(groups))
	for name := range groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return rulesJSON(r, groups)
	case output.ModeMarkdown:
		rulesMarkdown(r, groups, groupNames)
	default:
		rulesText(r, groups, groupNames)
	}
	return nil
}

func rulesText(r *output.Renderer, groups map[string][]string, groupNames []string) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("Violation Kinds"))
	r.Println("")
	for _, d := range violationDocs {
		r.Printf("  %s  %s\n", styles.Bold.Render(d.Kind.String()), d.Desc)
	}

	r.Println("")
	r.Println(styles.Header1.Render("Calculation Functions"))
	r.Println("")
	for _, group := range groupNames {
		r.Printf("  %s  %s\n", styles.Bold.Render(group), strings.Join(groups[group], ", "))
	}
	r.Println("")
	r.Println(styles.Muted.Render("Function calls in calculations may not be nested"))
	r.Println("")
}

func rulesMarkdown(r *output.Renderer, groups map[string][]string, groupNames []string) {
	r.Println(output.FormatHeader(1, "Violation Kinds"))
	r.Println("")
	for _, d := range violationDocs {
		r.Printf("- **%s** - %s\n", d.Kind.String(), d.Desc)
	}
	r.Println("")

	r.Println(output.FormatHeader(1, "Calculation Functions"))
	r.Println("")
	for _, group := range groupNames {
		r.Printf("- **%s**: %s\n", group, strings.Join(groups[group], ", "))
	}
	r.Println("")
	r.Println("Function calls in calculations may not be nested.")
}

// rulesJSONOutput is the JSON shape of the rules listing.
type rulesJSONOutput struct {
	Violations []violationJSON     `json:"violations"`
	Functions  map[string][]string `json:"functions"`
}

type violationJSON struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

func rulesJSON(r *output.Renderer, groups map[string][]string) error {
	out := rulesJSONOutput{Functions: groups}
	for _, d := range violationDocs {
		out.Violations = append(out.Violations, violationJSON{
			Kind:        d.Kind.String(),
			Description: d.Desc,
		})
	}
	return r.JSON(out)
}
