package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "funnel_api_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"path", "method", "status"},
	)

	// CacheHits tracks cache hits/misses
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_api_cache_hits_total",
			Help: "Number of cache hits",
		},
		[]string{"operation"},
	)

	// WizardTransitions tracks wizard view transitions
	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_api_wizard_transitions_total",
			Help: "Number of wizard view transitions",
		},
		[]string{"from", "to"},
	)

	// OTPSends tracks OTP send attempts by outcome
	OTPSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_api_otp_sends_total",
			Help: "Number of OTP send attempts",
		},
		[]string{"provider", "status"},
	)

	// OTPVerifications tracks OTP verification attempts by outcome
	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_api_otp_verifications_total",
			Help: "Number of OTP verification attempts",
		},
		[]string{"provider", "status"},
	)

	// Submissions tracks final booking submissions by outcome
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_api_submissions_total",
			Help: "Number of booking request submissions",
		},
		[]string{"mode", "status"},
	)

	// ActiveConnections tracks active connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnel_api_active_connections",
			Help: "Number of active connections",
		},
	)
)
