package engine

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"beanexport/internal/config"
	"beanexport/internal/logging"
	"beanexport/internal/pipeline"
	"beanexport/internal/plugin"
	"beanexport/internal/telemetry"
	"beanexport/sink"
	sinkfile "beanexport/sink/file"
	sinkkafka "beanexport/sink/kafka"
	"beanexport/source"
	sourcefile "beanexport/source/file"
	sourcekafka "beanexport/source/kafka"
)

// Config locates the inputs of one export run.
type Config struct {
	ExportPath string // export definition: plugins and settings
	LedgerPath string // stream document for the file source, "-" = stdin
	Output     string // overrides settings.sink with a file sink when set
}

// Bootstrap loads the export definition and wires source, pipeline and sink.
// Nothing is read until Run.
func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	// 1. export definition; malformed documents surface as ErrInvalidConfig
	root, err := config.Load(cfg.ExportPath)
	if err != nil {
		return nil, err
	}

	// 2. settings and logging
	settings, err := config.LoadSettings(cfg.ExportPath)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	logging.Configure(logging.Options{Level: settings.Log.Level, JSON: settings.Log.JSON})

	// 3. pipeline
	metrics := telemetry.NewPrometheus(settings.Metrics.Namespace)
	runner, err := pipeline.Compile(ctx, root, Registry(settings), pipeline.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	e := &Engine{settings: settings, runner: runner, metrics: metrics}

	// 4. source and sink
	if e.src, err = newSource(settings.Source, cfg.LedgerPath); err != nil {
		return nil, multierr.Append(fmt.Errorf("source: %w", err), e.Close())
	}
	if e.dst, err = newSink(settings.Sink, cfg.Output); err != nil {
		return nil, multierr.Append(fmt.Errorf("sink: %w", err), e.Close())
	}
	return e, nil
}

// Registry is the handler table of an export run: the built-in handlers
// plus grpc:// remote handlers.
func Registry(s config.Settings) *plugin.Registry {
	reg := plugin.Builtin()
	reg.AddDiscovery(plugin.RemoteDiscovery(plugin.RemoteOptions{
		Timeout:  s.Remote.Timeout,
		Attempts: s.Remote.Attempts,
		Backoff:  s.Remote.Backoff,
	}))
	return reg
}

func newSource(s config.SourceSettings, ledgerPath string) (source.Adapter, error) {
	src, err := source.NewAdapter(s.Driver)
	if err != nil {
		return nil, err
	}
	switch s.Driver {
	case "file":
		err = src.Configure(sourcefile.Config{Path: ledgerPath})
	case "kafka":
		err = src.Configure(sourcekafka.Config{
			Brokers:   s.Kafka.Brokers,
			Topic:     s.Kafka.Topic,
			Partition: s.Kafka.Partition,
			Version:   s.Kafka.Version,
			Timeout:   s.Kafka.Timeout,
		})
	default:
		err = fmt.Errorf("no config block for source %q", s.Driver)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

func newSink(s config.SinkSettings, output string) (sink.Adapter, error) {
	driver := s.Driver
	if output != "" {
		driver = "file"
	}
	dst, err := sink.NewAdapter(driver)
	if err != nil {
		return nil, err
	}
	switch driver {
	case "file":
		path := s.Path
		if output != "" {
			path = output
		}
		err = dst.Configure(sinkfile.Config{Path: path})
	case "kafka":
		err = dst.Configure(sinkkafka.Config{
			Brokers: s.Kafka.Brokers,
			Topic:   s.Kafka.Topic,
			Acks:    s.Kafka.Acks,
		})
	default:
		err = fmt.Errorf("no config block for sink %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return dst, nil
}
