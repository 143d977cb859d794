// Package metrics exposes sweep and probe results to Prometheus.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/MrSnakeDoc/checkit/internal/domain"
)

const Namespace = "checkit"

// Metrics implements the lifecycle observer on its own registry.
type Metrics struct {
	reg *prometheus.Registry

	ProbesTotal        *prometheus.CounterVec
	ProbeLatency       *prometheus.HistogramVec
	SweepsTotal        prometheus.Counter
	SweepDuration      prometheus.Histogram
	SweepRecords       *prometheus.CounterVec
	ActiveRecords      prometheus.Gauge
	LastSweepTimestamp prometheus.Gauge
	ReportsWritten     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "probes_total",
			Help:      "Probe results by strategy and status",
		}, []string{"strategy", "status"}),
		ProbeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "probe_duration_seconds",
			Help:      "Time spent in a single probe",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"strategy"}),
		SweepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sweeps_total",
			Help:      "Completed sweeps",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a sweep",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		SweepRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sweep_records_total",
			Help:      "Records handled by sweeps, by disposition",
		}, []string{"disposition"}),
		ActiveRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_records",
			Help:      "Records in the active set at the last sweep",
		}),
		LastSweepTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_sweep_timestamp_seconds",
			Help:      "Unix time the last sweep finished",
		}),
		ReportsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reports_written_total",
			Help:      "Artifacts written by the report emitter",
		}, []string{"kind"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) ObserveProbe(strategy string, status domain.Status, latency time.Duration) {
	m.ProbesTotal.WithLabelValues(strategy, string(status)).Inc()
	m.ProbeLatency.WithLabelValues(strategy).Observe(latency.Seconds())
}

func (m *Metrics) ObserveSweep(s domain.SweepSummary) {
	m.SweepsTotal.Inc()
	m.SweepDuration.Observe(s.Duration().Seconds())
	m.ActiveRecords.Set(float64(s.Active))
	m.LastSweepTimestamp.Set(float64(s.FinishedAt.Unix()))

	for name, n := range map[string]int{
		"admitted":     s.Admitted,
		"duplicate":    s.Duplicates,
		"rejected":     s.Rejected,
		"recovered":    s.Recovered,
		"evicted":      s.Evicted,
		"deferred":     s.Deferred,
		"archived":     s.Archived,
		"skipped":      s.Skipped,
		"up":           s.Up,
		"down":         s.Down,
		"vanished":     s.Vanished,
		"store_errors": s.StoreErrors,
	} {
		m.SweepRecords.WithLabelValues(name).Add(float64(n))
	}
}

// ObserveReports counts emitter output.
func (m *Metrics) ObserveReports(generated, archived, failed int) {
	m.ReportsWritten.WithLabelValues("active").Add(float64(generated))
	m.ReportsWritten.WithLabelValues("archive").Add(float64(archived))
	m.ReportsWritten.WithLabelValues("failed").Add(float64(failed))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Push sends the registry to a Pushgateway. Batch sweeps exit before any
// scrape could happen, so they push instead.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
