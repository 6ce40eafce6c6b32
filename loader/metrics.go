package loader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments unit decryption and cache traffic. All record methods
// tolerate a nil receiver so a resolver can run without a registry wired.
type Metrics struct {
	decrypts        prometheus.Counter
	decryptDuration prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetrics creates the unit resolver collectors. Register the returned
// value on a Prometheus registry to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		decrypts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deepenc",
			Subsystem: "units",
			Name:      "decrypts_total",
			Help:      "Number of unit artifacts decrypted",
		}),
		decryptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "deepenc",
			Subsystem: "units",
			Name:      "decrypt_duration_seconds",
			Help:      "Time spent fetching and decrypting unit artifacts",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deepenc",
			Subsystem: "units",
			Name:      "cache_hits_total",
			Help:      "Unit loads served from the plaintext cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deepenc",
			Subsystem: "units",
			Name:      "cache_misses_total",
			Help:      "Unit loads that required a decrypt",
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.decrypts.Describe(ch)
	m.decryptDuration.Describe(ch)
	m.cacheHits.Describe(ch)
	m.cacheMisses.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.decrypts.Collect(ch)
	m.decryptDuration.Collect(ch)
	m.cacheHits.Collect(ch)
	m.cacheMisses.Collect(ch)
}

func (m *Metrics) observeUnitDecrypt(d time.Duration) {
	if m == nil {
		return
	}
	m.decrypts.Inc()
	m.decryptDuration.Observe(d.Seconds())
}

func (m *Metrics) unitCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) unitCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
