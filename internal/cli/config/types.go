package config

// Config is the resolved CLI configuration after merging defaults, the
// config file, environment variables, and flags.
type Config struct {
	// MetadataDir is the root of the metadata tree to validate.
	MetadataDir string `koanf:"metadata_dir"`

	// StatePath is the run-history database location.
	StatePath string `koanf:"state_path"`

	// Concurrency bounds parallel document validation. Zero means one worker
	// per CPU.
	Concurrency int `koanf:"concurrency"`

	// Output selects the render mode: auto, text, markdown, or json.
	Output string `koanf:"output"`

	// NoHistory disables run-history recording.
	NoHistory bool `koanf:"no_history"`

	Verbose bool `koanf:"verbose"`
}
