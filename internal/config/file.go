package config

import (
	"fmt"
	"strings"

	"github.com/nao1215/fuzznorm/internal/engine"
)

// FuzzerConfig holds settings that can be overridden per fuzzer.
type FuzzerConfig struct {
	// Unclassified overrides the global unclassified setting for this fuzzer.
	Unclassified string `yaml:"unclassified,omitempty"`
}

// DatabaseConfig holds the result database settings of the configuration file.
type DatabaseConfig struct {
	// Enabled turns recording on or off. Nil keeps the default (on).
	Enabled *bool `yaml:"enabled,omitempty"`

	// Dir is the directory of the database file.
	Dir string `yaml:"dir,omitempty"`
}

// File represents the structure of the .fuzznorm configuration file.
type File struct {
	Workers      int            `yaml:"workers,omitempty"`
	Unclassified string         `yaml:"unclassified,omitempty"`
	Pretty       bool           `yaml:"pretty,omitempty"`
	Database     DatabaseConfig `yaml:"database,omitempty"`

	// Fuzzers maps an engine token ("cats", "schemathesis:Negative") or an
	// engine family ("schemathesis") to its overrides.
	Fuzzers map[string]FuzzerConfig `yaml:"fuzzers,omitempty"`
}

// Validate checks the values read from the file.
func (f *File) Validate() error {
	if f.Workers < 0 {
		return ErrInvalidWorkers
	}
	if f.Unclassified != "" && !validUnclassified(f.Unclassified) {
		return ErrInvalidUnclassified
	}
	for name, fc := range f.Fuzzers {
		if !knownFuzzerKey(name) {
			return fmt.Errorf("%w: %q", ErrUnknownFuzzer, name)
		}
		if fc.Unclassified != "" && !validUnclassified(fc.Unclassified) {
			return fmt.Errorf("fuzzer %s: %w", name, ErrInvalidUnclassified)
		}
	}
	return nil
}

// knownFuzzerKey reports whether key is an engine token or an engine family.
func knownFuzzerKey(key string) bool {
	if _, err := engine.Parse(key); err == nil {
		return true
	}
	if strings.Contains(key, ":") {
		return false
	}
	for _, e := range engine.All() {
		if string(e.Family) == key {
			return true
		}
	}
	return false
}

// mergeFuzzerConfig returns base with the non-zero values of override applied.
func mergeFuzzerConfig(base, override FuzzerConfig) FuzzerConfig {
	if override.Unclassified != "" {
		base.Unclassified = override.Unclassified
	}
	return base
}
