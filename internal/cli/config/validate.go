package config

import (
	"fmt"
	"os"
)

// Validate checks the configuration itself. Directory existence is checked
// separately so help-style commands work without a metadata tree.
func (c *Config) Validate() error {
	if c.MetadataDir == "" {
		return fmt.Errorf("metadata_dir is required")
	}
	switch c.Output {
	case "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("invalid output mode %q, must be one of: auto, text, markdown, json", c.Output)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	return nil
}

// ValidateDirectories checks that the metadata directory exists.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.MetadataDir); os.IsNotExist(err) {
		return fmt.Errorf("metadata directory does not exist: %s\nHint: create it or point --metadata-dir at your metadata tree", c.MetadataDir)
	}
	return nil
}
