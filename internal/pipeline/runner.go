package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"beanexport/internal/config"
	"beanexport/internal/ledger"
	"beanexport/internal/logging"
	"beanexport/internal/plugin"
	"beanexport/internal/telemetry"
	"beanexport/internal/transform"
)

// Runner applies an ordered chain of transforms to a directive stream. It
// holds no per-run state and may be run repeatedly.
type Runner struct {
	stages  []transform.Transform
	metrics telemetry.Collector
	log     *zap.Logger
}

type Option func(*Runner)

func WithMetrics(c telemetry.Collector) Option {
	return func(r *Runner) {
		if c != nil {
			r.metrics = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{metrics: telemetry.NoOp{}, log: logging.L()}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runner) AddStage(t transform.Transform) { r.stages = append(r.stages, t) }

// Stages lists stage names in execution order.
func (r *Runner) Stages() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name()
	}
	return names
}

// Result is the outcome of one run. Errors holds *TransformError values in
// the order they were reported.
type Result struct {
	RunID   uuid.UUID
	Entries ledger.Entries
	Errors  []error
}

// Run feeds entries through every stage in order. A fatal stage error stops
// the run: the returned Result then carries the output of the last completed
// stage and the error is a *ResolutionError. Completed stages are not undone.
func (r *Runner) Run(ctx context.Context, entries ledger.Entries) (Result, error) {
	res := Result{RunID: uuid.New(), Entries: entries}
	log := r.log.With(zap.String("run_id", res.RunID.String()))
	start := time.Now()

	log.Info("pipeline: run started", zap.Int("entries", len(entries)), zap.Int("stages", len(r.stages)))
	for i, s := range r.stages {
		t0 := time.Now()
		out, errs, err := s.Apply(ctx, res.Entries)
		took := time.Since(t0)
		if err != nil {
			r.metrics.RunDone(telemetry.OutcomeAborted, time.Since(start))
			log.Error("pipeline: stage failed",
				zap.Int("stage", i), zap.String("name", s.Name()), zap.Error(err))
			return res, &ResolutionError{Stage: i, Module: s.Name(), Err: err}
		}

		r.metrics.ObserveStage(s.Name(), len(res.Entries), len(out), took)
		if len(errs) > 0 {
			r.metrics.StageErrors(s.Name(), len(errs))
			log.Warn("pipeline: stage reported errors",
				zap.Int("stage", i), zap.String("name", s.Name()), zap.Int("errors", len(errs)))
		}
		for _, e := range errs {
			res.Errors = append(res.Errors, &TransformError{Stage: i, Module: s.Name(), Err: e})
		}
		log.Debug("pipeline: stage done",
			zap.Int("stage", i), zap.String("name", s.Name()),
			zap.Int("in", len(res.Entries)), zap.Int("out", len(out)), zap.Duration("took", took))
		res.Entries = out
	}

	outcome := telemetry.OutcomeOK
	if len(res.Errors) > 0 {
		outcome = telemetry.OutcomeErrors
	}
	r.metrics.RunDone(outcome, time.Since(start))
	log.Info("pipeline: run finished",
		zap.Int("entries", len(res.Entries)), zap.Int("errors", len(res.Errors)),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// Close releases stages holding resources, such as remote handler
// connections.
func (r *Runner) Close() error {
	var err error
	for _, s := range r.stages {
		if c, ok := s.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

// Export compiles root against reg, runs it once over entries and releases
// the pipeline.
func Export(ctx context.Context, root config.Root, reg *plugin.Registry, entries ledger.Entries, opts ...Option) (Result, error) {
	r, err := Compile(ctx, root, reg, opts...)
	if err != nil {
		return Result{Entries: entries}, err
	}
	res, err := r.Run(ctx, entries)
	return res, multierr.Append(err, r.Close())
}
