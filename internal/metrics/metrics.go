package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotline",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slotline",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by path.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotline",
			Name:      "bookings_created_total",
			Help:      "Bookings created since start.",
		},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotline",
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by target status.",
		},
		[]string{"status"},
	)

	mailSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotline",
			Name:      "mail_sent_total",
			Help:      "Transactional mail attempts by outcome.",
		},
		[]string{"outcome"},
	)

	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "slotline",
			Name:      "websocket_clients",
			Help:      "Connected change feed clients.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bookingsCreated,
			bookingTransitions,
			mailSent,
			wsClients,
		)
	})
}

// ObserveHTTP records one handled request
func ObserveHTTP(method, path, status string, seconds float64) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(path).Observe(seconds)
}

// IncBookingCreated counts a new booking
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingTransition counts a status change
func IncBookingTransition(status string) {
	bookingTransitions.WithLabelValues(status).Inc()
}

// IncMail counts a mail attempt; outcome is "sent" or "failed"
func IncMail(outcome string) {
	mailSent.WithLabelValues(outcome).Inc()
}

// SetWSClients records the current websocket client count
func SetWSClients(n int) {
	wsClients.Set(float64(n))
}
