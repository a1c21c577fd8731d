package commands

import (
	"io"

	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/tendermint/vmruntime/config"
	"github.com/tendermint/vmruntime/internal/executor"
	"github.com/tendermint/vmruntime/internal/modules"
	"github.com/tendermint/vmruntime/internal/state"
)

// metricsSet is the metrics of every component a command wires up.
type metricsSet struct {
	state    *state.Metrics
	modules  *modules.Metrics
	executor *executor.Metrics
}

func newMetrics(conf *config.Config) metricsSet {
	if !conf.Instrumentation.Prometheus {
		return metricsSet{
			state:    state.NopMetrics(),
			modules:  modules.NopMetrics(),
			executor: executor.NopMetrics(),
		}
	}
	ns := conf.Instrumentation.Namespace
	return metricsSet{
		state:    state.PrometheusMetrics(ns, "moniker", conf.Moniker),
		modules:  modules.PrometheusMetrics(ns, "moniker", conf.Moniker),
		executor: executor.PrometheusMetrics(ns, "moniker", conf.Moniker),
	}
}

// writeMetrics writes everything gathered so far in the text exposition
// format. It does nothing unless Prometheus is on.
func writeMetrics(w io.Writer, conf *config.Config) error {
	if !conf.Instrumentation.Prometheus {
		return nil
	}
	families, err := stdprometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func openStore(conf *config.Config, metrics *state.Metrics) (*state.Store, error) {
	db, err := config.DefaultDBProvider(&config.DBContext{ID: "state", Config: conf})
	if err != nil {
		return nil, err
	}
	return state.NewStore(db, state.StoreMetrics(metrics)), nil
}
