package orchestrator

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report pipeline activity.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	units         *prometheus.CounterVec
	unitsActive   prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns the metrics registered with the global Prometheus
// registry. The collectors are created once so several orchestrators can
// share them.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs Metrics registered with reg. It panics on
// registration errors other than an identical collector already present.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ngui",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration spent in each pipeline stage.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage", "status"},
		),
		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ngui",
				Subsystem: "pipeline",
				Name:      "stage_failures_total",
				Help:      "Number of inputs that failed, by stage and error code.",
			},
			[]string{"stage", "code"},
		),
		units: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ngui",
				Subsystem: "pipeline",
				Name:      "inputs_total",
				Help:      "Number of processed inputs by outcome.",
			},
			[]string{"status"},
		),
		unitsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "ngui",
				Subsystem: "pipeline",
				Name:      "inputs_active",
				Help:      "Number of inputs currently being processed.",
			},
		),
	}

	register := func(c prometheus.Collector) prometheus.Collector {
		if err := reg.Register(c); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				return already.ExistingCollector
			}
			panic(err)
		}
		return c
	}
	m.stageDuration = register(m.stageDuration).(*prometheus.HistogramVec)
	m.stageFailures = register(m.stageFailures).(*prometheus.CounterVec)
	m.units = register(m.units).(*prometheus.CounterVec)
	m.unitsActive = register(m.unitsActive).(prometheus.Gauge)
	return m
}

// ObserveStage records the time spent in a stage.
func (m *Metrics) ObserveStage(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// IncFailure counts a failed input.
func (m *Metrics) IncFailure(stage, code string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage, code).Inc()
	m.units.WithLabelValues(statusError).Inc()
}

// IncSuccess counts a rendered input.
func (m *Metrics) IncSuccess() {
	if m == nil {
		return
	}
	m.units.WithLabelValues(statusSuccess).Inc()
}

func (m *Metrics) unitStarted() {
	if m != nil {
		m.unitsActive.Inc()
	}
}

func (m *Metrics) unitDone() {
	if m != nil {
		m.unitsActive.Dec()
	}
}
