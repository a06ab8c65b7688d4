package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/fuzznorm/internal/engine"
	"github.com/nao1215/fuzznorm/internal/log"
	"github.com/nao1215/fuzznorm/internal/model"
	"github.com/nao1215/fuzznorm/internal/parser"
	"github.com/nao1215/fuzznorm/internal/report"
	"github.com/nao1215/fuzznorm/internal/run"
	"github.com/nao1215/fuzznorm/internal/target"
)

// RunResult is the outcome of one successfully processed run.
type RunResult = model.RunResult

// Summary is the outcome of a Dispatch call.
type Summary struct {
	// Total is the number of runs handed to Dispatch.
	Total int

	// Processed is the number of runs whose outputs were fully written.
	Processed int

	// Elapsed is the wall clock time of the batch.
	Elapsed time.Duration

	// Runs lists the successful runs ordered by name.
	Runs []RunResult

	// Failed lists the runs that stopped with an error, ordered by name.
	Failed []model.RunFailure

	// Err combines the per-run errors, each prefixed with the run name.
	Err error
}

// Report converts the summary into a batch report for the report writers.
// Error texts are redacted since they quote raw engine output.
func (s *Summary) Report(input, output string) *model.BatchReport {
	failed := make([]model.RunFailure, len(s.Failed))
	for i, f := range s.Failed {
		failed[i] = model.RunFailure{Name: f.Name, Error: log.Redact(f.Error)}
	}
	return &model.BatchReport{
		Input:     input,
		Output:    output,
		Total:     s.Total,
		Processed: s.Processed,
		Elapsed:   s.Elapsed,
		Runs:      s.Runs,
		Failed:    failed,
	}
}

// Dispatcher normalizes located runs concurrently.
// Each run gets its own Pipeline; a failing run never stops its siblings.
type Dispatcher struct {
	// outDir is the root of the per-run output directories.
	outDir string

	// workers is the maximum number of runs processed at once.
	workers int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// recorder stores results when set.
	recorder Recorder

	// jsonOpts configures the encoding of the written files.
	jsonOpts []report.JSONWriterOption

	// lenient decides the unclassified-block policy per engine.
	lenient func(engine.Engine) bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the maximum number of concurrently processed runs.
// Values below 1 keep the default of runtime.GOMAXPROCS(0).
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithDispatchLogger sets a custom logger for the dispatcher and its pipelines.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithRecorder stores every processed run in recorder.
func WithRecorder(recorder Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

// WithPrettyPrint indents the written JSON files.
func WithPrettyPrint(pretty bool) DispatcherOption {
	return func(d *Dispatcher) {
		if pretty {
			d.jsonOpts = []report.JSONWriterOption{report.WithPrettyPrint()}
		} else {
			d.jsonOpts = nil
		}
	}
}

// WithLenient sets the per-engine unclassified-block policy.
func WithLenient(lenient func(engine.Engine) bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.lenient = lenient
	}
}

// NewDispatcher creates a Dispatcher writing below outDir.
func NewDispatcher(outDir string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		outDir:  outDir,
		workers: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// newPipeline builds the step pipeline of one run.
func (d *Dispatcher) newPipeline() *Pipeline {
	p := New(WithLogger(d.logger))
	p.AddSteps(
		NewPrepareOutputStep(),
		NewNormalizeStep(
			WithNormalizeJSONOptions(d.jsonOpts...),
			WithNormalizeLenient(d.lenient),
		),
		NewDeduplicateStep(d.jsonOpts...),
		NewCopyMetadataStep(),
	)
	if d.recorder != nil {
		p.AddStep(NewRecordStep(d.recorder, d.logger))
	}
	return p
}

// prepared is a run whose metadata has been read.
type prepared struct {
	run     run.Run
	meta    *run.Metadata
	handler parser.Handler
	err     error
}

// IsSetupError reports whether err aborts a whole batch rather than one run.
func IsSetupError(err error) bool {
	return errors.Is(err, engine.ErrUnknownEngine) ||
		errors.Is(err, target.ErrUnknownTarget) ||
		errors.Is(err, parser.ErrNoHandler)
}

// prepare reads the metadata of every run in parallel.
// Unknown engine or target tokens are returned as an error; any other
// failure is kept on the run so that only that run fails.
func (d *Dispatcher) prepare(runs []run.Run) ([]prepared, error) {
	out := make([]prepared, len(runs))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, r := range runs {
		g.Go(func() error {
			out[i].run = r
			meta, err := run.ReadMetadata(r.Path)
			if err == nil {
				out[i].handler, err = parser.Lookup(meta.Engine)
			}
			if err != nil {
				if IsSetupError(err) {
					return fmt.Errorf("%s: %w", r.Name, err)
				}
				out[i].err = err
				return nil
			}
			out[i].meta = meta
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Dispatch normalizes runs and returns the batch summary.
//
// The returned error is non-nil only for setup errors, in which case no
// output has been written, or when ctx is cancelled. Per-run failures are
// logged and reported through Summary.Failed and Summary.Err.
func (d *Dispatcher) Dispatch(ctx context.Context, runs []run.Run) (*Summary, error) {
	start := time.Now()

	d.logger.Info("starting batch",
		"total_runs", len(runs),
		"workers", d.workers,
		"steps", d.newPipeline().StepNames(),
	)

	preparedRuns, err := d.prepare(runs)
	if err != nil {
		return nil, err
	}

	results := make([]*RunResult, len(runs))
	errs := make([]error, len(runs))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, p := range preparedRuns {
		g.Go(func() error {
			defer func() {
				d.logger.Debug("run finished",
					"run", p.run.Name,
					"done", done.Add(1),
					"total", len(runs),
				)
			}()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			if p.err != nil {
				errs[i] = p.err
				d.logFailure(p.run.Name, p.err)
				return nil
			}

			state := NewRunState(p.run, p.meta, p.handler, d.outDir)
			if err := d.newPipeline().Execute(ctx, state); err != nil {
				errs[i] = err
				d.logFailure(p.run.Name, err)
				return nil
			}
			results[i] = &state.Result
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	summary := &Summary{Total: len(runs)}
	for i, p := range preparedRuns {
		if errs[i] != nil {
			summary.Failed = append(summary.Failed, model.RunFailure{Name: p.run.Name, Error: errs[i].Error()})
			summary.Err = multierr.Append(summary.Err, fmt.Errorf("%s: %w", p.run.Name, errs[i]))
			continue
		}
		summary.Runs = append(summary.Runs, *results[i])
	}
	summary.Processed = len(summary.Runs)
	slices.SortFunc(summary.Runs, func(a, b RunResult) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(summary.Failed, func(a, b model.RunFailure) int { return strings.Compare(a.Name, b.Name) })
	summary.Elapsed = time.Since(start)

	d.logger.Info("batch complete",
		"processed", summary.Processed,
		"total_runs", summary.Total,
		"elapsed", summary.Elapsed,
	)

	return summary, ctx.Err()
}

// logFailure reports a failed run on the error stream.
func (d *Dispatcher) logFailure(name string, err error) {
	d.logger.Error("failed to process run",
		"run", name,
		"error", err,
	)
}
