// Package metrics exports static route existence probes to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	router "github.com/goliatone/go-static-router"
)

// PrometheusObserver implements router.GateObserver.
type PrometheusObserver struct {
	lookups  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusObserver creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "static_lookups_total",
				Help:      "Total number of static route existence probes by outcome",
			},
			[]string{"route", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "static_lookup_duration_seconds",
				Help:      "Static route existence probe latency in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"route"},
		),
	}

	for _, c := range []prometheus.Collector{o.lookups, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *PrometheusObserver) ObserveLookup(label string, outcome router.GateOutcome, elapsed time.Duration) {
	o.lookups.WithLabelValues(label, string(outcome)).Inc()
	o.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// Lookups exposes the lookup counter, mostly for tests.
func (o *PrometheusObserver) Lookups() *prometheus.CounterVec {
	return o.lookups
}
