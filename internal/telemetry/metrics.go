package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes reported to RunDone.
const (
	OutcomeOK      = "ok"
	OutcomeErrors  = "errors"
	OutcomeAborted = "aborted"
)

// Collector receives pipeline measurements. Implementations must be safe to
// call from a single goroutine; the runner never calls them concurrently.
type Collector interface {
	ObserveStage(stage string, in, out int, d time.Duration)
	StageErrors(stage string, n int)
	RunDone(outcome string, d time.Duration)
}

type NoOp struct{}

func (NoOp) ObserveStage(string, int, int, time.Duration) {}
func (NoOp) StageErrors(string, int)                      {}
func (NoOp) RunDone(string, time.Duration)                {}

// Prometheus records into a private registry so batch runs can dump it with
// WriteTextfile for the node exporter textfile collector.
type Prometheus struct {
	reg *prometheus.Registry

	entriesIn   *prometheus.CounterVec
	entriesOut  *prometheus.CounterVec
	stageTime   *prometheus.HistogramVec
	stageErrors *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runTime     prometheus.Gauge
}

func NewPrometheus(namespace string) *Prometheus {
	p := &Prometheus{
		reg: prometheus.NewRegistry(),
		entriesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_entries_in_total",
			Help:      "Directives fed into a pipeline stage.",
		}, []string{"stage"}),
		entriesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_entries_out_total",
			Help:      "Directives emitted by a pipeline stage.",
		}, []string{"stage"}),
		stageTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in a pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Non-fatal errors reported by a pipeline stage.",
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		runTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent run.",
		}),
	}
	p.reg.MustRegister(p.entriesIn, p.entriesOut, p.stageTime, p.stageErrors, p.runs, p.runTime)
	return p
}

func (p *Prometheus) ObserveStage(stage string, in, out int, d time.Duration) {
	p.entriesIn.WithLabelValues(stage).Add(float64(in))
	p.entriesOut.WithLabelValues(stage).Add(float64(out))
	p.stageTime.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *Prometheus) StageErrors(stage string, n int) {
	p.stageErrors.WithLabelValues(stage).Add(float64(n))
}

func (p *Prometheus) RunDone(outcome string, d time.Duration) {
	p.runs.WithLabelValues(outcome).Inc()
	p.runTime.Set(d.Seconds())
}

// Registry exposes the underlying registry, e.g. for promhttp or tests.
func (p *Prometheus) Registry() *prometheus.Registry { return p.reg }

// WriteTextfile atomically writes the current metrics to path in the text
// exposition format.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.reg)
}
