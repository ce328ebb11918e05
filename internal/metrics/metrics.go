// Package metrics exposes roll-up counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/rollup/internal/core"
)

const namespace = "rollup"

// Metrics implements core.Recorder on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	columns      *prometheus.CounterVec
	rows         prometheus.Counter
	inspections  prometheus.Counter
	storedGauges *prometheus.GaugeVec
}

var _ core.Recorder = (*Metrics)(nil)

// New registers the roll-up collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Roll-up runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time to classify, normalize, aggregate and export a dataset.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		columns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_classified_total",
			Help:      "Classified columns by detected class.",
		}, []string{"class"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Data rows loaded from uploaded sheets.",
		}),
		inspections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inspections_total",
			Help:      "Sheets loaded and classified.",
		}),
		storedGauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_entries",
			Help:      "Datasets and runs held in memory.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.runs,
		m.runDuration,
		m.columns,
		m.rows,
		m.inspections,
		m.storedGauges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveInspect counts a classified sheet.
func (m *Metrics) ObserveInspect(profiles core.Profiles, rows int) {
	m.inspections.Inc()
	m.rows.Add(float64(rows))
	for _, p := range profiles {
		m.columns.WithLabelValues(string(p.Detected)).Inc()
	}
}

// ObserveRun counts a run and, for successful ones, records its duration.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	m.runs.WithLabelValues(outcome).Inc()
	if outcome == core.OutcomeSuccess {
		m.runDuration.Observe(d.Seconds())
	}
}

// SetStored records how many datasets and runs are in memory.
func (m *Metrics) SetStored(datasets, runs int) {
	m.storedGauges.WithLabelValues("dataset").Set(float64(datasets))
	m.storedGauges.WithLabelValues("run").Set(float64(runs))
}
