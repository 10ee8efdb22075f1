// Package config handles workspace configuration for the cutscene tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/cutscene-compiler/pkg/compiler"
	"github.com/devicelab-dev/cutscene-compiler/pkg/export"
	"github.com/devicelab-dev/cutscene-compiler/pkg/validator"
)

// File names searched for, in order.
var FileNames = []string{"cutscene.yaml", "cutscene.yml"}

// Config represents the workspace configuration (cutscene.yaml).
type Config struct {
	// Export settings
	FPS    int    `yaml:"fps"`    // Engine simulation rate
	Output string `yaml:"output"` // Directory exported cutscenes are written to

	// Compiler settings
	MarkNamedNodes bool `yaml:"markNamedNodes"` // Emit mark_node before named nodes

	// Validator settings
	GlobalPrefix   string              `yaml:"globalPrefix"`   // Global-scope marker guard vars must not carry
	RequiredParams map[string][]string `yaml:"requiredParams"` // Per-type overrides of required parameters
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		FPS:          export.DefaultFPS,
		GlobalPrefix: validator.DefaultGlobalPrefix,
	}
}

// Load loads configuration from a file. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir looks for cutscene.yaml or cutscene.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	if path, ok := findInDir(dir); ok {
		return Load(path)
	}

	// No config file found, return defaults
	return Defaults(), nil
}

func findInDir(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.FPS < 0 {
		return fmt.Errorf("fps must not be negative, got %d", c.FPS)
	}
	return nil
}

// ValidatorOptions returns the validator settings.
func (c *Config) ValidatorOptions() validator.Options {
	return validator.Options{
		RequiredParams: c.RequiredParams,
		GlobalPrefix:   c.GlobalPrefix,
	}
}

// CompilerOptions returns the compiler settings.
func (c *Config) CompilerOptions() compiler.Options {
	return compiler.Options{MarkNamedNodes: c.MarkNamedNodes}
}
