package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	sectionsTotal *prometheus.CounterVec
	priceCache    *prometheus.CounterVec
	buildsTotal   *prometheus.CounterVec
	refreshTotal  *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg (useful for tests).
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		sectionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_section_results_total",
				Help: "Section adapter results by outcome",
			},
			[]string{"section", "source", "outcome"},
		),
		priceCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_price_cache_lookups_total",
				Help: "Price cache lookups by result",
			},
			[]string{"result"},
		),
		buildsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_snapshot_builds_total",
				Help: "Get-or-build outcomes",
			},
			[]string{"outcome"},
		),
		refreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_section_refresh_total",
				Help: "Section refresh outcomes",
			},
			[]string{"section", "outcome"},
		),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordSection records one adapter result. outcome is ok, soft_error or empty.
func (r *Recorder) RecordSection(section, source, outcome string) {
	r.sectionsTotal.WithLabelValues(section, source, outcome).Inc()
}

// RecordPriceCache records a cache hit or miss.
func (r *Recorder) RecordPriceCache(result string) {
	r.priceCache.WithLabelValues(result).Inc()
}

// RecordBuild records created, existing or race_lost.
func (r *Recorder) RecordBuild(outcome string) {
	r.buildsTotal.WithLabelValues(outcome).Inc()
}

// RecordRefresh records applied or skipped.
func (r *Recorder) RecordRefresh(section, outcome string) {
	r.refreshTotal.WithLabelValues(section, outcome).Inc()
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordError(string)                   {}
func (Nop) RecordLatency(string, float64)        {}
func (Nop) RecordSection(string, string, string) {}
func (Nop) RecordPriceCache(string)              {}
func (Nop) RecordBuild(string)                   {}
func (Nop) RecordRefresh(string, string)         {}
