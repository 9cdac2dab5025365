// README: Prometheus collectors for rides, matching, notifications and HTTP traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "londa"

var (
	RidesRequested = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rides_requested_total", Help: "Rides created through request-ride"})
	FareFallbacks  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "fare_fallbacks_total", Help: "Fare quotes that fell back to the default fare"})
	AcceptRetries  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "accept_retries_total", Help: "Accept attempts retried after store contention"})

	RideTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_transitions_total", Help: "Ride state machine events by outcome"},
		[]string{"event", "result"},
	)

	DriversSkipped = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "nearby_drivers_skipped_total", Help: "Online drivers skipped by nearby search because they have no location"})
	NearbyLatency  = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "nearby_latency_seconds", Help: "Nearby-driver search latency", Buckets: prometheus.DefBuckets})

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Push notifications by kind and result"},
		[]string{"kind", "result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
