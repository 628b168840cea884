package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reelhouse", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reelhouse", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AuthSuccesses = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "reelhouse", Name: "auth_success_total", Help: "Number of successfully authenticated requests."},
	)
	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reelhouse", Name: "auth_failure_total", Help: "Number of rejected authentications by reason."},
		[]string{"reason"},
	)
	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reelhouse", Name: "provider_error_total", Help: "Provider errors translated to local codes."},
		[]string{"code"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthSuccesses)
	reg.MustRegister(AuthFailures)
	reg.MustRegister(ProviderErrors)
}
