package config

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "fuzznorm"

	// DefaultWorkers of zero sizes the worker pool to GOMAXPROCS,
	// which automaxprocs adjusts to the container CPU quota.
	DefaultWorkers = 0

	// UnclassifiedError stops a run when an engine block matches no known pattern.
	UnclassifiedError = "error"

	// UnclassifiedPass records such blocks as passing cases instead.
	UnclassifiedPass = "pass"

	// DefaultUnclassified keeps unknown engine output visible as an error.
	DefaultUnclassified = UnclassifiedError
)

// ReportFormat is the format of a summary report file.
type ReportFormat string

const (
	ReportFormatText     ReportFormat = "text"
	ReportFormatMarkdown ReportFormat = "markdown"
	ReportFormatJSON     ReportFormat = "json"
)

// reportExtensions maps report file extensions to their format.
var reportExtensions = map[string]ReportFormat{
	".txt":      ReportFormatText,
	".md":       ReportFormatMarkdown,
	".markdown": ReportFormatMarkdown,
	".json":     ReportFormatJSON,
}

// ReportFormatOf returns the report format implied by the file extension of path.
func ReportFormatOf(path string) (ReportFormat, error) {
	format, ok := reportExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", ErrUnsupportedReportFormat
	}
	return format, nil
}

// Config holds all configuration options of a normalization batch.
// It is populated from the configuration file and CLI flags and passed
// through the application rather than kept in global state.
type Config struct {
	// InputDir contains the raw run directories.
	InputDir string

	// OutputDir receives one directory per normalized run.
	OutputDir string

	// Workers is the number of runs normalized concurrently.
	// Zero means GOMAXPROCS.
	Workers int

	// Unclassified selects how engine output matching no known pattern is
	// handled: UnclassifiedError or UnclassifiedPass.
	Unclassified string

	// Pretty enables indented JSON result files.
	Pretty bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// Fuzzers holds per-fuzzer overrides loaded from the configuration file.
	Fuzzers map[string]FuzzerConfig

	// SaveToDB records every normalized run in the result database.
	SaveToDB bool

	// DBDir is the directory of the result database.
	// Defaults to the XDG data directory (~/.local/share/fuzznorm on Linux).
	DBDir string

	// ReportFiles are summary report paths; the extension selects the format.
	ReportFiles []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers:      DefaultWorkers,
		Unclassified: DefaultUnclassified,
		SaveToDB:     true,
		DBDir:        XDGDataDir(),
	}
}

// ApplyFile copies the values set in the configuration file onto c.
// Zero values in the file leave the current settings untouched, so callers
// apply the file first and explicitly set CLI flags afterwards.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	if f.Workers != 0 {
		c.Workers = f.Workers
	}
	if f.Unclassified != "" {
		c.Unclassified = f.Unclassified
	}
	if f.Pretty {
		c.Pretty = true
	}
	if f.Database.Enabled != nil {
		c.SaveToDB = *f.Database.Enabled
	}
	if f.Database.Dir != "" {
		c.DBDir = f.Database.Dir
	}
	if len(f.Fuzzers) > 0 {
		c.Fuzzers = f.Fuzzers
	}
}

// FuzzerConfig returns the effective settings for an engine token such as
// "schemathesis:Negative". An entry for the exact token wins over an entry
// for the engine family ("schemathesis"), which wins over the global settings.
func (c *Config) FuzzerConfig(token string) FuzzerConfig {
	result := FuzzerConfig{Unclassified: c.Unclassified}

	family, _, hasMode := strings.Cut(token, ":")
	if hasMode {
		if fc, ok := c.Fuzzers[family]; ok {
			result = mergeFuzzerConfig(result, fc)
		}
	}
	if fc, ok := c.Fuzzers[token]; ok {
		result = mergeFuzzerConfig(result, fc)
	}

	return result
}

// Lenient reports whether unclassified output of the engine is recorded as a pass.
func (c *Config) Lenient(token string) bool {
	return c.FuzzerConfig(token).Unclassified == UnclassifiedPass
}

// XDGDataDir returns the XDG data directory for fuzznorm.
// On Linux: ~/.local/share/fuzznorm
// On macOS: ~/Library/Application Support/fuzznorm
// On Windows: %LOCALAPPDATA%\fuzznorm
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for fuzznorm.
// On Linux: ~/.config/fuzznorm
// On macOS: ~/Library/Application Support/fuzznorm
// On Windows: %APPDATA%\fuzznorm
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package's sentinel errors.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return ErrNoInputDir
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if filepath.Clean(c.InputDir) == filepath.Clean(c.OutputDir) {
		return ErrSameDirectories
	}
	if c.Workers < 0 {
		return ErrInvalidWorkers
	}
	if !validUnclassified(c.Unclassified) {
		return ErrInvalidUnclassified
	}
	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDatabaseDir
	}
	for _, path := range c.ReportFiles {
		if _, err := ReportFormatOf(path); err != nil {
			return err
		}
	}
	return nil
}

// validUnclassified reports whether v is an accepted "unclassified" setting.
func validUnclassified(v string) bool {
	return slices.Contains([]string{UnclassifiedError, UnclassifiedPass}, v)
}
