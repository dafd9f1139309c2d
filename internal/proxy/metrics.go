package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	verificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attestation_verification_total",
			Help: "Total number of attestation verifications",
		},
		[]string{"platform", "result"},
	)

	verificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attestation_verification_duration_seconds",
			Help:    "Duration of attestation verifications",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"platform"},
	)

	verificationInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attestation_verification_in_flight",
			Help: "Number of verifications currently running",
		},
	)

	cacheHitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attestation_cache_hit_total",
			Help: "Total number of verification cache hits",
		},
	)
)

func init() {
	prometheus.MustRegister(verificationTotal)
	prometheus.MustRegister(verificationDuration)
	prometheus.MustRegister(verificationInFlight)
	prometheus.MustRegister(cacheHitTotal)
}
