package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "journeylink", Name: "booking_transitions_total", Help: "Booking state transitions by kind"},
		[]string{"transition"},
	)
	ConsistencyFaults = promauto.NewCounter(prometheus.CounterOpts{Namespace: "journeylink", Name: "consistency_faults_total", Help: "Committed transitions whose follow-up side effect failed"})
	RidesCompleted    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "journeylink", Name: "rides_completed_total", Help: "Rides transitioned to completed"})
	CompletionSweeps  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "journeylink", Name: "completion_sweeps_total", Help: "Completion sweep runs"})
	SearchDuration    = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "journeylink", Name: "ride_search_duration_seconds", Help: "Ride search latency"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "journeylink", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
)
