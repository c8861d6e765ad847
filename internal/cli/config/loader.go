// Package config loads the CLI configuration. Precedence, highest to lowest:
// flags > SEMALINT_* environment variables > semalint.yaml > defaults.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults applied before any other configuration source.
const (
	DefaultMetadataDir = "metadata"
	DefaultStatePath   = ".semalint/state.db"
	DefaultOutput      = "auto"
)

// Config file names probed in the working directory and its ancestors.
var configFileNames = []string{"semalint.yaml", "semalint.yml"}

// maxUpwardSearchLevels limits the ancestor search for a config file.
const maxUpwardSearchLevels = 10

var (
	configFileUsed string
	currentConfig  *Config
)

type loggerKey struct{}

// Load builds the configuration from defaults, config file, environment, and
// the given flag set. Flags only override when explicitly set.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	configFileUsed = ""
	currentConfig = nil

	if err := k.Load(confmap.Provider(map[string]any{
		"metadata_dir": DefaultMetadataDir,
		"state_path":   DefaultStatePath,
		"output":       DefaultOutput,
		"concurrency":  0,
		"no_history":   false,
		"verbose":      false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := findConfigFile(cfgFile)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		configFileUsed = path
	}

	// SEMALINT_METADATA_DIR -> metadata_dir
	if err := k.Load(env.Provider("SEMALINT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SEMALINT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			// kebab-case flag names map to snake_case config keys
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "state" {
				key = "state_path"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Paths from a config file resolve relative to that file's directory.
	if configFileUsed != "" {
		base := filepath.Dir(configFileUsed)
		if !flagChanged(flags, "metadata-dir") {
			cfg.MetadataDir = resolveRelativeTo(cfg.MetadataDir, base)
		}
		if !flagChanged(flags, "state") {
			cfg.StatePath = resolveRelativeTo(cfg.StatePath, base)
		}
	}

	currentConfig = &cfg
	return &cfg, nil
}

// Current returns the configuration produced by the last Load call, or nil.
func Current() *Config {
	return currentConfig
}

// LoggerKey returns the context key used to stash the logger. It lives here so
// the commands package can read it without importing the cli package.
func LoggerKey() any {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context, falling back to a
// discard logger.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// ConfigFileUsed returns the config file path the last Load picked up, if any.
func ConfigFileUsed() string {
	return configFileUsed
}

// findConfigFile picks the config file: an explicit path wins, otherwise the
// nearest semalint.yaml walking up from the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range configFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

func resolveRelativeTo(path, base string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
