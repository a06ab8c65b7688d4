package run

import "errors"

var (
	// ErrInvalidDirectoryName is returned when the artifact directory path is not valid UTF-8 text.
	ErrInvalidDirectoryName = errors.New("invalid directory name")

	// ErrInvalidPattern is returned when the selectors do not form a valid glob pattern.
	ErrInvalidPattern = errors.New("invalid run pattern")

	// ErrInvalidMetadata is returned when metadata.json cannot be decoded.
	ErrInvalidMetadata = errors.New("invalid run metadata")
)
