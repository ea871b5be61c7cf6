package checkout

import "github.com/prometheus/client_golang/prometheus"

var (
	// dispatches counts checkout dispatches by path (free|paid).
	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_dispatches_total",
			Help: "Total checkout dispatches by path.",
		},
		[]string{"path"},
	)

	// creations counts server-creation calls issued by the orchestrator.
	creations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_server_creations_total",
			Help: "Total server creation calls issued.",
		},
	)

	// paymentFailures counts sessions that resolved to the failed variant.
	paymentFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_payment_failures_total",
			Help: "Total checkout sessions resolved as failed.",
		},
	)

	// duplicateResolutions counts benign duplicate success-return visits.
	duplicateResolutions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_duplicate_resolutions_total",
			Help: "Total duplicate success-return resolutions suppressed.",
		},
	)
)

func init() {
	prometheus.MustRegister(dispatches, creations, paymentFailures, duplicateResolutions)
}
