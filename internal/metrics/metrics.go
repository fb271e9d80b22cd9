package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentmarket",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentmarket",
			Name:      "reservation_transitions_total",
			Help:      "Successful reservation transitions by target status.",
		},
		[]string{"status"},
	)

	conflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentmarket",
			Name:      "reservation_conflicts_total",
			Help:      "Rejected reservation operations by conflict kind.",
		},
		[]string{"kind"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentmarket",
			Name:      "events_published_total",
			Help:      "Reservation events published by type.",
		},
		[]string{"type"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, transitions, conflicts, eventsPublished)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncTransition counts a successful transition into status.
func IncTransition(status string) {
	transitions.WithLabelValues(status).Inc()
}

// IncConflict counts a rejected operation: "insufficient_inventory" for
// failed availability checks, "version" for optimistic lock losses.
func IncConflict(kind string) {
	conflicts.WithLabelValues(kind).Inc()
}

// IncEventPublished counts a published reservation event.
func IncEventPublished(eventType string) {
	eventsPublished.WithLabelValues(eventType).Inc()
}
