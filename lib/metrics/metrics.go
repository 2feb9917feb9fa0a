package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "govdata"

// Run holds the metrics of one pipeline run in its own registry so that a
// push replaces the previous run's values instead of accumulating.
type Run struct {
	id       string
	registry *prometheus.Registry

	RecordsExtracted *prometheus.CounterVec
	RecordsStaged    *prometheus.CounterVec
	RowsLoaded       *prometheus.CounterVec
	NullMeasures     *prometheus.CounterVec
	StageStatus      *prometheus.GaugeVec
	StageDuration    *prometheus.GaugeVec
}

func NewRun(id string) *Run {
	r := &Run{
		id:       id,
		registry: prometheus.NewRegistry(),
		RecordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_extracted_total",
			Help:      "Records produced by a source adapter.",
		}, []string{"dataset"}),
		RecordsStaged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_staged_total",
			Help:      "Records written to the staging store.",
		}, []string{"collection"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows inserted into the analytical store.",
		}, []string{"table"}),
		NullMeasures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "null_measures_total",
			Help:      "Measures that failed to cast and were stored as NULL.",
		}, []string{"table"}),
		StageStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_status",
			Help:      "Outcome of a stage: 0 success, 1 partial, 2 fatal.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of a stage.",
		}, []string{"stage"}),
	}
	r.registry.MustRegister(
		r.RecordsExtracted,
		r.RecordsStaged,
		r.RowsLoaded,
		r.NullMeasures,
		r.StageStatus,
		r.StageDuration,
	)
	return r
}

func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// Push sends every metric of the run to a Prometheus Pushgateway, grouped
// by run id.
func (r *Run) Push(ctx context.Context, gatewayURL string) error {
	err := push.New(gatewayURL, namespace).
		Gatherer(r.registry).
		Grouping("run_id", r.id).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
