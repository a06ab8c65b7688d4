package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.Validate() so
// callers can use errors.Is() for programmatic handling.
var (
	// ErrNoInputDir is returned when no input directory is given.
	ErrNoInputDir = errors.New("no input directory specified")

	// ErrNoOutputDir is returned when no output directory is given.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrSameDirectories is returned when results would be written into the
	// directory the raw runs are read from.
	ErrSameDirectories = errors.New("input and output directories must differ")

	// ErrInvalidWorkers is returned when the worker count is negative.
	// Use 0 to size the pool to the available CPUs.
	ErrInvalidWorkers = errors.New("invalid workers: must be non-negative")

	// ErrInvalidUnclassified is returned for an "unclassified" setting other
	// than "error" or "pass".
	ErrInvalidUnclassified = errors.New(`invalid unclassified setting: must be "error" or "pass"`)

	// ErrNoDatabaseDir is returned when recording is enabled without a database directory.
	ErrNoDatabaseDir = errors.New("no database directory specified")

	// ErrUnsupportedReportFormat is returned for a report file whose extension
	// is not one of .txt, .md, .markdown or .json.
	ErrUnsupportedReportFormat = errors.New("unsupported report format: use .txt, .md or .json")

	// ErrUnknownFuzzer is returned for a fuzzers entry that names no known engine.
	ErrUnknownFuzzer = errors.New("unknown fuzzer in configuration file")
)
