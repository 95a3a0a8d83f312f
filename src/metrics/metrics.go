package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hnsample"

// Metrics holds the counters of a single sampling run on a private registry,
// so they can be written to a node-exporter textfile when the run ends.
type Metrics struct {
	registry *prometheus.Registry

	RowsRead     prometheus.Counter
	RowsKept     prometheus.Counter
	RowsSampled  prometheus.Counter
	DuplicateIDs prometheus.Gauge
	RunDuration  prometheus.Gauge
	LastSuccess  prometheus.Gauge
}

// New creates and registers the run metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Data rows read from the input file.",
		}),
		RowsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_kept_total",
			Help:      "Rows with a positive comment count.",
		}),
		RowsSampled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_sampled_total",
			Help:      "Rows written to the output file.",
		}),
		DuplicateIDs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_ids",
			Help:      "Post ids seen more than once among kept rows.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished.",
		}),
	}
	m.registry.MustRegister(m.RowsRead, m.RowsKept, m.RowsSampled, m.DuplicateIDs, m.RunDuration, m.LastSuccess)
	return m
}

// Finish records the run duration and success time.
func (m *Metrics) Finish(start, end time.Time) {
	m.RunDuration.Set(end.Sub(start).Seconds())
	m.LastSuccess.Set(float64(end.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format to path.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
