package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/target"
)

// MetadataFile is the name of the per-run descriptor.
const MetadataFile = "metadata.json"

// Metadata describes a single run.
type Metadata struct {
	// Engine is the fuzzing engine that produced the run.
	Engine engine.Engine

	// Target is the API the engine was run against.
	Target target.Target

	// RunID is the identifier assigned by the run orchestrator, if any.
	RunID *string

	// Duration is the fuzzing time in seconds.
	Duration float64
}

// rawMetadata mirrors the on-disk JSON layout.
type rawMetadata struct {
	Fuzzer   string  `json:"fuzzer"`
	Target   string  `json:"target"`
	RunID    *string `json:"run_id"`
	Duration float64 `json:"duration"`
}

// ReadMetadata loads "<runDir>/metadata.json".
//
// I/O failures and malformed JSON are returned wrapped as they are;
// an unknown engine or target token returns an error matching
// engine.ErrUnknownEngine or target.ErrUnknownTarget.
func ReadMetadata(runDir string) (*Metadata, error) {
	path := filepath.Join(runDir, MetadataFile)
	data, err := os.ReadFile(path) //nolint:gosec // path is built from the located run directory
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return DecodeMetadata(data)
}

// DecodeMetadata decodes metadata from its JSON form.
func DecodeMetadata(data []byte) (*Metadata, error) {
	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}

	e, err := engine.Parse(raw.Fuzzer)
	if err != nil {
		return nil, err
	}
	t, err := target.Parse(raw.Target)
	if err != nil {
		return nil, err
	}
	if raw.Duration < 0 {
		return nil, fmt.Errorf("%w: negative duration %v", ErrInvalidMetadata, raw.Duration)
	}

	return &Metadata{
		Engine:   e,
		Target:   t,
		RunID:    raw.RunID,
		Duration: raw.Duration,
	}, nil
}
