package modules

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "modules"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of resolutions served from the cache.
	Hits metrics.Counter
	// Number of resolutions that had to load.
	Misses metrics.Counter
	// Time to load, decode and verify a module.
	LoadDurationSeconds metrics.Histogram
	// Number of cached modules.
	Size metrics.Gauge
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Hits: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "hits",
			Help:      "Number of resolutions served from the cache.",
		}, labels).With(labelsAndValues...),
		Misses: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "misses",
			Help:      "Number of resolutions that had to load.",
		}, labels).With(labelsAndValues...),
		LoadDurationSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "load_duration_seconds",
			Help:      "Time to load, decode and verify a module.",
			Buckets:   stdprometheus.ExponentialBuckets(0.0001, 4, 6),
		}, labels).With(labelsAndValues...),
		Size: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "size",
			Help:      "Number of cached modules.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Hits:                discard.NewCounter(),
		Misses:              discard.NewCounter(),
		LoadDurationSeconds: discard.NewHistogram(),
		Size:                discard.NewGauge(),
	}
}
