// Package metrics exports escalation counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "desktop_escalate"

// Recorder holds the escalation metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	attempts     prometheus.Counter
	restarts     prometheus.Counter
	validations  *prometheus.CounterVec
	stepFailures *prometheus.CounterVec
	results      *prometheus.CounterVec
	duration     prometheus.Histogram
}

// New registers the metrics on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		attempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_attempts_total",
			Help:      "Full state-machine runs started.",
		}),
		restarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Runs restarted after a recoverable failure.",
		}),
		validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Response validations by outcome.",
		}, []string{"outcome"}),
		stepFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Failed runs by step and reason code.",
		}, []string{"step", "reason"}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Finished escalations by result.",
		}, []string{"result"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "escalation_duration_seconds",
			Help:      "Wall time of a whole escalation.",
			Buckets:   []float64{5, 15, 30, 60, 120, 240, 480},
		}),
	}
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Attempt() {
	if r != nil {
		r.attempts.Inc()
	}
}

func (r *Recorder) Restart() {
	if r != nil {
		r.restarts.Inc()
	}
}

// StepFailure counts one failed run.
func (r *Recorder) StepFailure(step model.Step, reason model.ReasonCode) {
	if r != nil {
		r.stepFailures.WithLabelValues(strconv.Itoa(int(step)), string(reason)).Inc()
	}
}

// Validation counts one response check; ok is the check's verdict.
func (r *Recorder) Validation(ok bool) {
	if r == nil {
		return
	}
	outcome := "rejected"
	if ok {
		outcome = "accepted"
	}
	r.validations.WithLabelValues(outcome).Inc()
}

// Finished records the final result and duration of an escalation.
func (r *Recorder) Finished(success bool, d time.Duration) {
	if r == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	r.results.WithLabelValues(result).Inc()
	r.duration.Observe(d.Seconds())
}
