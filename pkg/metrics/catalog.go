package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics records fitment index activity.
type CatalogMetrics struct {
	lookups      *prometheus.CounterVec
	resolveTime  *prometheus.HistogramVec
	integrity    *prometheus.CounterVec
	indexRecords prometheus.Gauge
	indexModels  prometheus.Gauge
	reloads      *prometheus.CounterVec
}

// NewCatalogMetrics registers the catalog metrics on the provided registerer.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chassis_lookups_total",
		Help: "Chassis lookups by outcome.",
	}, []string{"outcome", "mode"})
	resolveTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitment_resolve_duration_seconds",
		Help:    "Duration of fitment resolution calls in seconds.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2},
	}, []string{"operation"})
	integrity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_integrity_issues_total",
		Help: "Fitment and supersession records excluded for integrity problems.",
	}, []string{"kind"})
	indexRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fitment_index_records",
		Help: "Fitment records in the active index.",
	})
	indexModels := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fitment_index_models",
		Help: "Make/model pairs in the active index.",
	})
	reloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_reloads_total",
		Help: "Catalog index reloads by result.",
	}, []string{"result"})
	reg.MustRegister(lookups, resolveTime, integrity, indexRecords, indexModels, reloads)
	return &CatalogMetrics{
		lookups:      lookups,
		resolveTime:  resolveTime,
		integrity:    integrity,
		indexRecords: indexRecords,
		indexModels:  indexModels,
		reloads:      reloads,
	}
}

// IncLookup counts a chassis lookup outcome.
func (c *CatalogMetrics) IncLookup(outcome, mode string) {
	if c == nil || c.lookups == nil {
		return
	}
	c.lookups.WithLabelValues(normalizeLabel(outcome), normalizeLabel(mode)).Inc()
}

// ObserveResolve records how long a resolution call took.
func (c *CatalogMetrics) ObserveResolve(operation string, d time.Duration) {
	if c == nil || c.resolveTime == nil {
		return
	}
	c.resolveTime.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

// IncIntegrity counts an excluded record or broken chain.
func (c *CatalogMetrics) IncIntegrity(kind string) {
	if c == nil || c.integrity == nil {
		return
	}
	c.integrity.WithLabelValues(normalizeLabel(kind)).Inc()
}

// SetIndexSize publishes the active index size.
func (c *CatalogMetrics) SetIndexSize(records, models int) {
	if c == nil || c.indexRecords == nil {
		return
	}
	c.indexRecords.Set(float64(records))
	c.indexModels.Set(float64(models))
}

// IncReload counts a reload attempt.
func (c *CatalogMetrics) IncReload(ok bool) {
	if c == nil || c.reloads == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	c.reloads.WithLabelValues(result).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
