// Package commands implements the semalint subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inteliome-labs/semalint/internal/cli/config"
	"github.com/inteliome-labs/semalint/internal/cli/output"
	"github.com/inteliome-labs/semalint/internal/engine"
	"github.com/inteliome-labs/semalint/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the shared command dependencies from the loaded
// configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	mode := output.Mode(cfg.Output)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, falling back to environment
// variables when no Load has run (direct command construction in tests).
func getConfig() *config.Config {
	if cfg := config.Current(); cfg != nil {
		return cfg
	}

	return &config.Config{
		MetadataDir: getEnvOrDefault("SEMALINT_METADATA_DIR", config.DefaultMetadataDir),
		StatePath:   getEnvOrDefault("SEMALINT_STATE_PATH", config.DefaultStatePath),
		Output:      getEnvOrDefault("SEMALINT_OUTPUT", config.DefaultOutput),
		Verbose:     os.Getenv("SEMALINT_VERBOSE") == "true",
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// newEngine creates a validation engine from the configuration.
func newEngine(cfg *config.Config, logger *slog.Logger) *engine.Engine {
	return engine.New(engine.Config{
		MetadataDir: cfg.MetadataDir,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	})
}

// openStore opens the run-history database, creating its directory if needed.
func openStore(cfg *config.Config) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}
	}
	return state.Open(cfg.StatePath)
}
