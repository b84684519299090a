package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "quote"

// SyncMetrics exports sync outcomes to Prometheus.
type SyncMetrics struct {
	runs      *prometheus.CounterVec
	conflicts prometheus.Counter
	removed   prometheus.Counter
	added     prometheus.Counter
	duration  *prometheus.HistogramVec
}

// NewSyncMetrics registers the sync collectors on reg. A nil reg uses the
// default registerer, which backs /-/metrics.
func NewSyncMetrics(reg prometheus.Registerer) (*SyncMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &SyncMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by status and failure kind.",
		}, []string{"status", "failure"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sync",
			Name:      "conflicts_total",
			Help:      "Conflicts detected across all sync runs.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sync",
			Name:      "removed_total",
			Help:      "Local quotes removed because the server no longer has them.",
		}),
		added: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sync",
			Name:      "added_total",
			Help:      "Server quotes appended to the store.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Wall time of a sync run.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.conflicts, m.removed, m.added, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordSync implements app.SyncRecorder.
func (m *SyncMetrics) RecordSync(status, failure string, conflicts, removed, added int, duration time.Duration) {
	m.runs.WithLabelValues(status, failure).Inc()
	m.conflicts.Add(float64(conflicts))
	m.removed.Add(float64(removed))
	m.added.Add(float64(added))
	m.duration.WithLabelValues(status).Observe(duration.Seconds())
}
