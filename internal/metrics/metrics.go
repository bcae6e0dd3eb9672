package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	availabilityComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "availability_computed_total",
			Help:      "Count of slot grid computations by view and outcome.",
		},
		[]string{"view", "outcome"},
	)

	bookingVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "booking_verdicts_total",
			Help:      "Count of booking validations by conflict type (none when valid).",
		},
		[]string{"conflict_type"},
	)

	readFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "read_failures_total",
			Help:      "Count of data store read failures by the policy applied.",
		},
		[]string{"policy"},
	)

	appointmentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "appointments_created_total",
			Help:      "Count of appointments persisted through the booking path.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, availabilityComputed, bookingVerdicts, readFailures, appointmentsCreated)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncAvailability(view, outcome string) {
	availabilityComputed.WithLabelValues(view, outcome).Inc()
}

func IncVerdict(conflictType string) {
	if conflictType == "" {
		conflictType = "none"
	}
	bookingVerdicts.WithLabelValues(conflictType).Inc()
}

func IncReadFailure(policy string) {
	readFailures.WithLabelValues(policy).Inc()
}

func IncAppointmentCreated() {
	appointmentsCreated.Inc()
}
