// Package prometheus provides an xform.MetricsProvider backed by Prometheus
// collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zoobzio/xform"
)

// Provider records engine and capacitor metrics.
type Provider struct {
	evaluations         prometheus.Histogram
	combinationFailures prometheus.Counter
	reverseRejections   *prometheus.CounterVec
	stateChanges        prometheus.Counter
	stateVersion        prometheus.Gauge
	health              *prometheus.GaugeVec
	healthTransitions   *prometheus.CounterVec
	processDuration     *prometheus.HistogramVec
	changesReceived     prometheus.Counter
}

// NewProvider registers the collectors with reg under namespace. A nil reg
// uses prometheus.DefaultRegisterer.
func NewProvider(reg prometheus.Registerer, namespace string) *Provider {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Provider{
		evaluations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_seconds",
			Help:      "Combination evaluation latency in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
		combinationFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "combination_failures_total",
			Help:      "Total combination function failures",
		}),
		reverseRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "reverse_rejections_total",
			Help:      "Total committed reversals that were refused",
		}, []string{"kind"}),
		stateChanges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "state_changes_total",
			Help:      "Total argument snapshots republished",
		}),
		stateVersion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "state_version",
			Help:      "Composite version of the latest argument snapshot",
		}),
		health: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "capacitor",
			Name:      "health",
			Help:      "1 for the current capacitor health, 0 otherwise",
		}, []string{"health"}),
		healthTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacitor",
			Name:      "health_transitions_total",
			Help:      "Total capacitor health transitions",
		}, []string{"from", "to"}),
		processDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "capacitor",
			Name:      "process_seconds",
			Help:      "Capacitor change processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status", "stage"}),
		changesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacitor",
			Name:      "changes_received_total",
			Help:      "Total raw changes received from watchers",
		}),
	}
}

func (p *Provider) OnEvaluate(d time.Duration) {
	p.evaluations.Observe(d.Seconds())
}

func (p *Provider) OnCombinationFailure() {
	p.combinationFailures.Inc()
}

func (p *Provider) OnReverseRejected(kind string) {
	p.reverseRejections.WithLabelValues(kind).Inc()
}

func (p *Provider) OnEngineStateChange(version uint64) {
	p.stateChanges.Inc()
	p.stateVersion.Set(float64(version))
}

func (p *Provider) OnHealthChange(from, to xform.Health) {
	p.health.WithLabelValues(from.String()).Set(0)
	p.health.WithLabelValues(to.String()).Set(1)
	p.healthTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (p *Provider) OnProcessSuccess(d time.Duration) {
	p.processDuration.WithLabelValues("success", "").Observe(d.Seconds())
}

func (p *Provider) OnProcessFailure(stage string, d time.Duration) {
	p.processDuration.WithLabelValues("failure", stage).Observe(d.Seconds())
}

func (p *Provider) OnChangeReceived() {
	p.changesReceived.Inc()
}

var _ xform.MetricsProvider = (*Provider)(nil)
