package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nao1215/fuzznorm/internal/model"
	"github.com/nao1215/fuzznorm/internal/parser"
	"github.com/nao1215/fuzznorm/internal/run"
)

// RunState is the per-run state handed from step to step.
type RunState struct {
	// Run is the located run directory.
	Run run.Run

	// Metadata is the decoded metadata of the run.
	Metadata *run.Metadata

	// Handler is the parser registered for the run's engine.
	Handler parser.Handler

	// OutDir is "<out>/<run>".
	OutDir string

	// Result accumulates what the steps produced.
	Result model.RunResult

	// Performed lists the names of the steps that completed.
	Performed []string
}

// NewRunState creates the state of r, whose outputs go below outRoot.
func NewRunState(r run.Run, meta *run.Metadata, h parser.Handler, outRoot string) *RunState {
	return &RunState{
		Run:      r,
		Metadata: meta,
		Handler:  h,
		OutDir:   filepath.Join(outRoot, r.Name),
		Result: model.RunResult{
			Name:     r.Name,
			Engine:   meta.Engine.String(),
			Target:   meta.Target.String(),
			Duration: meta.Duration,
		},
	}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the state
// accumulated by the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// A returned error stops the run.
	Do(ctx context.Context, state *RunState) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// Cancellation is checked before each step; a step in progress runs to
// completion. The first step error stops the run and is returned
// prefixed with the step name.
func (p *Pipeline) Execute(ctx context.Context, state *RunState) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"run", state.Run.Name,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"run", state.Run.Name,
		)

		if err := step.Do(ctx, state); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}

		state.Performed = append(state.Performed, step.Name())
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
