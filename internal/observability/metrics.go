package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PlannerCollector bundles Prometheus metrics for a planning run. It
// satisfies core.MatrixMetricsRecorder and placement.OptimizerMetricsRecorder.
type PlannerCollector struct {
	gatherer prometheus.Gatherer

	MatrixBuildDuration prometheus.Histogram
	MatrixPairs         prometheus.Counter
	MatrixWalls         prometheus.Gauge

	Generations prometheus.Counter
	Evaluations prometheus.Counter
	CacheHits   prometheus.Counter
	FrontSize   prometheus.Gauge

	Runs *prometheus.CounterVec
}

// NewPlannerCollector registers planner metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Metrics already registered under the same name are reused.
func NewPlannerCollector(reg prometheus.Registerer) (*PlannerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	buildDuration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "loss_matrix_build_duration_seconds",
		Help:    "Wall time spent computing candidate-to-sensor loss matrices.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "loss_matrix_build_duration_seconds")
	if err != nil {
		return nil, err
	}
	pairs, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loss_matrix_pairs_total",
		Help: "Candidate/sensor pairs traced across all loss matrix builds.",
	}), "loss_matrix_pairs_total")
	if err != nil {
		return nil, err
	}
	walls, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loss_matrix_walls",
		Help: "Walls considered by the most recent loss matrix build.",
	}), "loss_matrix_walls")
	if err != nil {
		return nil, err
	}
	generations, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimizer_generations_total",
		Help: "Optimizer generations completed.",
	}), "optimizer_generations_total")
	if err != nil {
		return nil, err
	}
	evaluations, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimizer_evaluations_total",
		Help: "Placement vectors scored by the optimizer, including cache hits.",
	}), "optimizer_evaluations_total")
	if err != nil {
		return nil, err
	}
	cacheHits, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimizer_cache_hits_total",
		Help: "Placement evaluations served from the evaluation cache.",
	}), "optimizer_cache_hits_total")
	if err != nil {
		return nil, err
	}
	frontSize, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pareto_front_size",
		Help: "Number of solutions on the most recent Pareto front.",
	}), "pareto_front_size")
	if err != nil {
		return nil, err
	}
	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_runs_total",
		Help: "Planning runs, labeled by outcome.",
	}, []string{"status"}), "planner_runs_total")
	if err != nil {
		return nil, err
	}

	return &PlannerCollector{
		gatherer:            gatherer,
		MatrixBuildDuration: buildDuration,
		MatrixPairs:         pairs,
		MatrixWalls:         walls,
		Generations:         generations,
		Evaluations:         evaluations,
		CacheHits:           cacheHits,
		FrontSize:           frontSize,
		Runs:                runs,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PlannerCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PlannerCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

// WriteTextfile dumps the current metrics in text exposition format for
// the node_exporter textfile collector.
func (c *PlannerCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.Gatherer()); err != nil {
		return fmt.Errorf("write metrics textfile %q: %w", path, err)
	}
	return nil
}

func (c *PlannerCollector) ObserveMatrixBuild(pairs, walls int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.MatrixBuildDuration.Observe(elapsed.Seconds())
	c.MatrixPairs.Add(float64(pairs))
	c.MatrixWalls.Set(float64(walls))
}

func (c *PlannerCollector) ObserveEvaluations(evaluations, cacheHits int) {
	if c == nil {
		return
	}
	c.Evaluations.Add(float64(evaluations))
	c.CacheHits.Add(float64(cacheHits))
}

func (c *PlannerCollector) ObserveGeneration() {
	if c == nil {
		return
	}
	c.Generations.Inc()
}

func (c *PlannerCollector) SetFrontSize(size int) {
	if c == nil {
		return
	}
	c.FrontSize.Set(float64(size))
}

// RecordRun counts a finished run as "ok" or "error".
func (c *PlannerCollector) RecordRun(err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.Runs.WithLabelValues(status).Inc()
}

// register adds collector to reg, reusing an existing collector of the
// same type when one is already registered under name.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T, name string) (T, error) {
	if err := reg.Register(collector); err != nil {
		var zero T
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return zero, err
	}
	return collector, nil
}
