package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/liwenju0/deepenc/bootstrap"
)

// RegisterSystemCollectors exposes the protection system's state as gauges
// sampled at scrape time, along with the resolvers' decrypt and cache
// counters.
func RegisterSystemCollectors(registry *prometheus.Registry, sys *bootstrap.System) {
	registry.MustRegister(sys.Collectors()...)
	registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "deepenc",
			Name:      "installed",
			Help:      "Whether the protection system is installed (1) or not (0)",
		}, func() float64 {
			if sys.Status().Installed {
				return 1
			}
			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "deepenc",
			Name:      "authorized",
			Help:      "Whether a valid key is resolved (1) or not (0)",
		}, func() float64 {
			if sys.Keys().VerifyAuthorization() {
				return 1
			}
			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "deepenc",
			Name:      "units_registered",
			Help:      "Number of unit names in the resolver registry",
		}, func() float64 {
			return float64(sys.Status().Units.Registered)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "deepenc",
			Name:      "units_cached",
			Help:      "Number of decrypted unit sources held in cache",
		}, func() float64 {
			return float64(sys.Status().Units.Cached)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "deepenc",
			Name:      "model_sessions",
			Help:      "Number of cached model sessions",
		}, func() float64 {
			return float64(sys.Status().ModelSessions)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "deepenc",
			Name:      "model_temp_files",
			Help:      "Number of live decrypted model temp files",
		}, func() float64 {
			return float64(len(sys.Status().TempFiles))
		}),
	)
}
