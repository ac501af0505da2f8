package config

import (
	"fmt"
	"os"
	"slices"
)

// OutputFormats are the accepted values of the output key.
var OutputFormats = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DSLDir == "" {
		return fmt.Errorf("dsl_dir is required")
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.MaxErrors < 0 {
		return fmt.Errorf("max_errors must not be negative, got %d", c.MaxErrors)
	}
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (want one of %v)", c.OutputFormat, OutputFormats)
	}
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.DSLDir); os.IsNotExist(err) {
		return fmt.Errorf("dsl directory does not exist: %s\nHint: Create the directory or use --dsl-dir to specify a different path", c.DSLDir)
	}
	return nil
}
