package executor

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "executor"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of executed transactions, by outcome (keep or discard).
	Transactions metrics.Counter
	// Gas used per transaction.
	GasUsed metrics.Histogram

	// Number of executed blocks.
	Blocks metrics.Counter
	// Number of user transactions per block.
	BlockTransactions metrics.Histogram
	// Time to execute a block.
	BlockProcessingSeconds metrics.Histogram
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
		Transactions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "transactions",
			Help:      "Number of executed transactions, by outcome.",
		}, append(labels, "outcome")).With(labelsAndValues...),
		GasUsed: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "gas_used",
			Help:      "Gas used per transaction.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 10, 8),
		}, labels).With(labelsAndValues...),
		Blocks: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks",
			Help:      "Number of executed blocks.",
		}, labels).With(labelsAndValues...),
		BlockTransactions: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "block_transactions",
			Help:      "Number of user transactions per block.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 2, 12),
		}, labels).With(labelsAndValues...),
		BlockProcessingSeconds: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "block_processing_seconds",
			Help:      "Time to execute a block.",
			Buckets:   stdprometheus.ExponentialBuckets(0.001, 2, 12),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Transactions:           discard.NewCounter(),
		GasUsed:                discard.NewHistogram(),
		Blocks:                 discard.NewCounter(),
		BlockTransactions:      discard.NewHistogram(),
		BlockProcessingSeconds: discard.NewHistogram(),
	}
}
