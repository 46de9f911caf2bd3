package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes recorded on lotledger_jobs_total.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Metrics holds the collectors for reconciliation jobs.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	scanned     *prometheus.CounterVec
	changed     *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors. A nil registerer shares one instance
// on the default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker times one pass.
type Tracker struct {
	metrics *Metrics
	pass    string
	start   time.Time
}

// Track starts timing pass.
func (m *Metrics) Track(pass string) *Tracker {
	return &Tracker{metrics: m, pass: pass, start: time.Now()}
}

// End records the outcome of the pass and returns err unchanged.
func (t *Tracker) End(err error) error {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	t.finish(status)
	return err
}

// Skipped records a pass that did not run because another holder had the lock.
func (t *Tracker) Skipped(err error) error {
	t.finish(StatusSkipped)
	return err
}

func (t *Tracker) finish(status string) {
	if t == nil || t.metrics == nil || t.pass == "" {
		return
	}
	t.metrics.runs.WithLabelValues(t.pass, status).Inc()
	if status == StatusSkipped {
		return
	}
	t.metrics.duration.WithLabelValues(t.pass).Observe(time.Since(t.start).Seconds())
	if status == StatusSuccess {
		t.metrics.lastSuccess.WithLabelValues(t.pass).SetToCurrentTime()
	}
}

// ObserveReport adds the lots a pass scanned and corrected.
func (m *Metrics) ObserveReport(pass string, scanned, changed int) {
	if m == nil {
		return
	}
	if scanned > 0 {
		m.scanned.WithLabelValues(pass).Add(float64(scanned))
	}
	if changed > 0 {
		m.changed.WithLabelValues(pass).Add(float64(changed))
	}
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lotledger_jobs_total",
			Help: "Reconciliation runs by pass and status.",
		}, []string{"pass", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lotledger_job_duration_seconds",
			Help:    "Duration of reconciliation runs that acquired the lock.",
			Buckets: []float64{0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"pass"}),
		scanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lotledger_reconcile_lots_scanned_total",
			Help: "Lots visited by reconciliation passes.",
		}, []string{"pass"}),
		changed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lotledger_reconcile_lots_changed_total",
			Help: "Lots whose quantities a reconciliation pass corrected.",
		}, []string{"pass"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lotledger_reconcile_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per pass.",
		}, []string{"pass"}),
	}
	registerer.MustRegister(m.runs, m.duration, m.scanned, m.changed, m.lastSuccess)
	return m
}
