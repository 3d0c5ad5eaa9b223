package engine

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"beanexport/internal/config"
	"beanexport/internal/logging"
	"beanexport/internal/pipeline"
	"beanexport/internal/telemetry"
	"beanexport/sink"
	"beanexport/source"
)

type Engine struct {
	settings config.Settings
	runner   *pipeline.Runner
	src      source.Adapter
	dst      sink.Adapter
	metrics  *telemetry.Prometheus
}

// Run reads the stream, applies the pipeline and delivers the result. When
// any stage reports errors nothing is written and the errors are returned
// combined; a fatal stage error is returned as is. The Result is returned in
// every case so callers can inspect partial output.
func (e *Engine) Run(ctx context.Context) (pipeline.Result, error) {
	defer e.writeMetrics()

	entries, err := e.src.Read(ctx)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("source: %w", err)
	}

	res, err := e.runner.Run(ctx, entries)
	if err != nil {
		return res, err
	}
	if len(res.Errors) > 0 {
		return res, multierr.Combine(res.Errors...)
	}

	if err := e.dst.Write(ctx, res.Entries); err != nil {
		return res, fmt.Errorf("sink: %w", err)
	}
	return res, nil
}

func (e *Engine) writeMetrics() {
	path := e.settings.Metrics.Textfile
	if path == "" {
		return
	}
	if err := e.metrics.WriteTextfile(path); err != nil {
		logging.L().Warn("engine: cannot write metrics textfile", zap.String("path", path), zap.Error(err))
	}
}

// Close releases the pipeline, source and sink. It is safe on a partially
// bootstrapped engine.
func (e *Engine) Close() error {
	var err error
	if e.runner != nil {
		err = multierr.Append(err, e.runner.Close())
	}
	if e.src != nil {
		err = multierr.Append(err, e.src.Close())
	}
	if e.dst != nil {
		err = multierr.Append(err, e.dst.Close())
	}
	return err
}
