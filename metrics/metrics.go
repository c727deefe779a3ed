package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests The total number of API calls, one per attempt (counter)
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketbooth",
			Name:      "api_requests_total",
			Help:      "The total number of requests sent to the ticketing API",
		},
		[]string{"method", "status"},
	)

	// APIRequestDuration Time spent waiting for the ticketing API (histogram)
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ticketbooth",
			Name:      "api_request_duration_seconds",
			Help:      "Time spent waiting for the ticketing API",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// TokenRefreshes Access token refreshes by outcome (counter)
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketbooth",
			Name:      "token_refreshes_total",
			Help:      "The total number of access token refreshes",
		},
		[]string{"outcome"},
	)

	// BookingsSubmitted Booking submissions by outcome (counter)
	BookingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketbooth",
			Name:      "bookings_submitted_total",
			Help:      "The total number of booking submissions",
		},
		[]string{"outcome"},
	)

	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)
)
