// Package metrics exposes the engine's run and step activity as Prometheus
// collectors via an api.Observer.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petrijr/advisa/pkg/api"
)

// PrometheusObserver implements api.Observer over a set of Prometheus
// collectors. Register it with any registry via Register.
type PrometheusObserver struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runsFailed    prometheus.Counter
	stepsTotal    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
}

// NewPrometheusObserver constructs the observer with its collectors
// unregistered.
func NewPrometheusObserver() *PrometheusObserver {
	return &PrometheusObserver{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "advisa_runs_started_total",
			Help: "Total number of runs started",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "advisa_runs_completed_total",
			Help: "Total number of runs that reached the terminal node",
		}),
		runsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "advisa_runs_failed_total",
			Help: "Total number of runs that ended with an error",
		}),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "advisa_steps_total",
			Help: "Total number of step executions",
		}, []string{"step"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "advisa_step_duration_seconds",
			Help:    "Duration of step executions",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
	}
}

// Register registers all collectors with reg.
func (o *PrometheusObserver) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		o.runsStarted, o.runsCompleted, o.runsFailed, o.stepsTotal, o.stepDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (o *PrometheusObserver) OnRunStart(context.Context, string) {
	o.runsStarted.Inc()
}

func (o *PrometheusObserver) OnRunCompleted(context.Context, string, int) {
	o.runsCompleted.Inc()
}

func (o *PrometheusObserver) OnRunFailed(context.Context, string, error) {
	o.runsFailed.Inc()
}

func (o *PrometheusObserver) OnStepStart(context.Context, string, string, int64) {}

func (o *PrometheusObserver) OnStepCompleted(_ context.Context, _ string, step string, _ int64, _ error, d time.Duration) {
	o.stepsTotal.WithLabelValues(step).Inc()
	o.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

var _ api.Observer = (*PrometheusObserver)(nil)
