package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/domaindive/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Do runs the probe for address and writes its result into payload.
	// A returned error is recorded as a failure of this step only; the
	// step must still leave its field in a well formed empty state.
	Do(ctx context.Context, address string, payload *model.Payload) error

	// Name returns the step's name for logging and failure reports.
	Name() string
}

// Report describes one pipeline run.
type Report struct {
	// Address is the domain the pipeline ran for.
	Address string

	// Failures maps the name of each failed step to its error message.
	Failures map[string]string

	// Completed lists the steps that ran without error, sorted by name.
	Completed []string

	// StartedAt is when the first stage started.
	StartedAt time.Time

	// Duration is the wall time of the whole run.
	Duration time.Duration

	mu sync.Mutex
}

// newReport creates an empty report for address.
func newReport(address string) *Report {
	return &Report{
		Address:   address,
		Failures:  make(map[string]string),
		Completed: make([]string, 0),
	}
}

// Failed reports whether the named step failed.
func (r *Report) Failed(step string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.Failures[step]
	return ok
}

// HasFailures reports whether any step failed.
func (r *Report) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failures) > 0
}

func (r *Report) recordFailure(step string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures[step] = err.Error()
}

func (r *Report) recordSuccess(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Completed = append(r.Completed, step)
}

// Pipeline runs stages of steps in order.
type Pipeline struct {
	// stages contains the ordered groups of concurrently executed steps.
	stages [][]Step

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

// New creates an empty Pipeline. Stages are added with AddStage.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: make([][]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStage appends a stage whose steps run concurrently.
// An empty stage is ignored.
func (p *Pipeline) AddStage(steps ...Step) {
	if len(steps) == 0 {
		return
	}
	p.stages = append(p.stages, steps)
}

// StageCount returns the number of stages.
func (p *Pipeline) StageCount() int {
	return len(p.stages)
}

// StepCount returns the number of steps across all stages.
func (p *Pipeline) StepCount() int {
	n := 0
	for _, stage := range p.stages {
		n += len(stage)
	}
	return n
}

// StepNames returns the names of all steps in stage order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, stage := range p.stages {
		for _, step := range stage {
			names = append(names, step.Name())
		}
	}
	return names
}

// Execute runs every stage for address, writing into payload.
// It always returns a report; step errors are recorded there, never
// returned. If ctx is cancelled between stages, the remaining steps are
// recorded as failed with the context error.
func (p *Pipeline) Execute(ctx context.Context, address string, payload *model.Payload) *Report {
	report := newReport(address)
	report.StartedAt = time.Now()

	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"address", address,
				"stage", i+1,
				"reason", err,
			)
			for _, remaining := range p.stages[i:] {
				for _, step := range remaining {
					report.recordFailure(step.Name(), err)
				}
			}
			break
		}

		p.runStage(ctx, address, payload, stage, report)
	}

	sort.Strings(report.Completed)
	report.Duration = time.Since(report.StartedAt)

	p.logger.Debug("pipeline finished",
		"address", address,
		"completed", len(report.Completed),
		"failed", len(report.Failures),
		"elapsed", report.Duration,
	)

	return report
}

// runStage runs the steps of one stage concurrently and waits for all of them.
func (p *Pipeline) runStage(ctx context.Context, address string, payload *model.Payload, stage []Step, report *Report) {
	var g errgroup.Group
	for _, step := range stage {
		g.Go(func() error {
			p.logger.Debug("executing step",
				"step", step.Name(),
				"address", address,
			)

			if err := step.Do(ctx, address, payload); err != nil {
				p.logger.Warn("probe failed",
					"step", step.Name(),
					"address", address,
					"error", err,
				)
				report.recordFailure(step.Name(), err)
				return nil
			}

			report.recordSuccess(step.Name())
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // steps report failures through the report
}

// Collect runs the pipeline on a fresh payload.
func (p *Pipeline) Collect(ctx context.Context, address string) (*model.Payload, *Report) {
	payload := model.NewPayload()
	report := p.Execute(ctx, address, payload)
	return payload, report
}
