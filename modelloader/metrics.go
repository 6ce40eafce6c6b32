package modelloader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments model decryption and the session cache. All record
// methods tolerate a nil receiver so a loader can run without a registry
// wired.
type Metrics struct {
	decrypts        prometheus.Counter
	decryptDuration prometheus.Histogram
	sessionHits     prometheus.Counter
	sessionMisses   prometheus.Counter
}

// NewMetrics creates the model loader collectors. Register the returned
// value on a Prometheus registry to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		decrypts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deepenc",
			Subsystem: "models",
			Name:      "decrypts_total",
			Help:      "Number of model artifacts decrypted",
		}),
		decryptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "deepenc",
			Subsystem: "models",
			Name:      "decrypt_duration_seconds",
			Help:      "Time spent fetching and decrypting model artifacts",
			Buckets:   prometheus.DefBuckets,
		}),
		sessionHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deepenc",
			Subsystem: "models",
			Name:      "session_cache_hits_total",
			Help:      "Model loads served from the session cache",
		}),
		sessionMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deepenc",
			Subsystem: "models",
			Name:      "session_cache_misses_total",
			Help:      "Model loads that required decrypt and construction",
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.decrypts.Describe(ch)
	m.decryptDuration.Describe(ch)
	m.sessionHits.Describe(ch)
	m.sessionMisses.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.decrypts.Collect(ch)
	m.decryptDuration.Collect(ch)
	m.sessionHits.Collect(ch)
	m.sessionMisses.Collect(ch)
}

func (m *Metrics) observeModelDecrypt(d time.Duration) {
	if m == nil {
		return
	}
	m.decrypts.Inc()
	m.decryptDuration.Observe(d.Seconds())
}

func (m *Metrics) sessionCacheHit() {
	if m == nil {
		return
	}
	m.sessionHits.Inc()
}

func (m *Metrics) sessionCacheMiss() {
	if m == nil {
		return
	}
	m.sessionMisses.Inc()
}
