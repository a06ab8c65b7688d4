package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/model"
	"github.com/nao1215/fuzznorm/internal/parser"
	"github.com/nao1215/fuzznorm/internal/report"
	"github.com/nao1215/fuzznorm/internal/run"
)

const (
	// ResultFile is the normalized test case file of a run.
	ResultFile = "fuzzer.json"

	// DedupFile is the per-endpoint failure summary of a run.
	DedupFile = "deduplicated_cases.json"

	// dirPermission is used for the per-run output directories.
	dirPermission = 0o755
)

// PrepareOutputStep creates the output directory of the run.
type PrepareOutputStep struct{}

// NewPrepareOutputStep creates a new PrepareOutputStep.
func NewPrepareOutputStep() *PrepareOutputStep {
	return &PrepareOutputStep{}
}

// Name returns the step name.
func (s *PrepareOutputStep) Name() string {
	return "prepare-output"
}

// Do executes the step.
func (s *PrepareOutputStep) Do(_ context.Context, state *RunState) error {
	if err := os.MkdirAll(state.OutDir, dirPermission); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// NormalizeStep parses the raw engine output and writes the result file.
type NormalizeStep struct {
	// jsonOpts configures the result file encoding.
	jsonOpts []report.JSONWriterOption

	// lenient decides the unclassified-block policy per engine.
	lenient func(engine.Engine) bool
}

// NormalizeStepOption configures a NormalizeStep.
type NormalizeStepOption func(*NormalizeStep)

// WithNormalizeJSONOptions sets the encoding options of the result file.
func WithNormalizeJSONOptions(opts ...report.JSONWriterOption) NormalizeStepOption {
	return func(s *NormalizeStep) {
		s.jsonOpts = opts
	}
}

// WithNormalizeLenient sets the per-engine unclassified-block policy.
func WithNormalizeLenient(lenient func(engine.Engine) bool) NormalizeStepOption {
	return func(s *NormalizeStep) {
		if lenient != nil {
			s.lenient = lenient
		}
	}
}

// NewNormalizeStep creates a new NormalizeStep.
// By default unclassified blocks are errors.
func NewNormalizeStep(opts ...NormalizeStepOption) *NormalizeStep {
	s := &NormalizeStep{
		lenient: func(engine.Engine) bool { return false },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *NormalizeStep) Name() string {
	return "normalize"
}

// Do executes the step.
// The result file is replaced only when every case was classified.
func (s *NormalizeStep) Do(_ context.Context, state *RunState) error {
	cases, err := state.Handler.Parse(state.Run.FuzzerDir(), parser.Options{
		Lenient: s.lenient(state.Metadata.Engine),
	})
	if err != nil {
		return err
	}

	var result model.RunResult
	digest, err := report.WriteFileAtomic(filepath.Join(state.OutDir, ResultFile), func(w io.Writer) error {
		_, err := report.NewJSONWriter(w, s.jsonOpts...).WriteCases(cases, result.AddCase)
		return err
	})
	if err != nil {
		return err
	}

	state.Result.Cases = result.Cases
	state.Result.Counts = result.Counts
	state.Result.Failures = result.Failures
	state.Result.Digest = digest
	return nil
}

// DeduplicateStep writes the per-endpoint failure summary for engines that support it.
type DeduplicateStep struct {
	// jsonOpts configures the dedup file encoding.
	jsonOpts []report.JSONWriterOption
}

// NewDeduplicateStep creates a new DeduplicateStep.
func NewDeduplicateStep(opts ...report.JSONWriterOption) *DeduplicateStep {
	return &DeduplicateStep{jsonOpts: opts}
}

// Name returns the step name.
func (s *DeduplicateStep) Name() string {
	return "deduplicate"
}

// Do executes the step. It is a no-op for engines without deduplication.
func (s *DeduplicateStep) Do(_ context.Context, state *RunState) error {
	if !state.Handler.CanDeduplicate() {
		return nil
	}

	entries, err := state.Handler.Deduplicate(state.Run.FuzzerDir())
	if err != nil {
		return err
	}
	if _, err := report.WriteDedupFile(filepath.Join(state.OutDir, DedupFile), entries, s.jsonOpts...); err != nil {
		return err
	}

	state.Result.Dedup = len(entries)
	return nil
}

// CopyMetadataStep copies metadata.json next to the results.
type CopyMetadataStep struct{}

// NewCopyMetadataStep creates a new CopyMetadataStep.
func NewCopyMetadataStep() *CopyMetadataStep {
	return &CopyMetadataStep{}
}

// Name returns the step name.
func (s *CopyMetadataStep) Name() string {
	return "copy-metadata"
}

// Do executes the step.
func (s *CopyMetadataStep) Do(_ context.Context, state *RunState) error {
	src := filepath.Join(state.Run.Path, run.MetadataFile)
	f, err := os.Open(src) //nolint:gosec // path is built from the located run directory
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	_, err = report.WriteFileAtomic(filepath.Join(state.OutDir, run.MetadataFile), func(w io.Writer) error {
		_, err := io.Copy(w, f)
		return err
	})
	return err
}

// Recorder stores run results.
// It is implemented by *database.ResultDB.
type Recorder interface {
	RecordRun(ctx context.Context, r model.RunResult) (int64, error)
	GetRun(ctx context.Context, name string) (*model.RecordedRun, error)
}

// RecordStep stores the run result.
type RecordStep struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewRecordStep creates a new RecordStep.
func NewRecordStep(recorder Recorder, logger *slog.Logger) *RecordStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStep{recorder: recorder, logger: logger}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do executes the step.
func (s *RecordStep) Do(ctx context.Context, state *RunState) error {
	previous, err := s.recorder.GetRun(ctx, state.Result.Name)
	if err != nil {
		return err
	}
	if previous != nil && previous.Digest != state.Result.Digest {
		s.logger.Info("result changed since last record",
			"run", state.Result.Name,
			"previous_digest", previous.Digest,
			"digest", state.Result.Digest,
		)
	}

	if _, err := s.recorder.RecordRun(ctx, state.Result); err != nil {
		return err
	}
	return nil
}
