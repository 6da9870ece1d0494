package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups every collector the service exports. A nil *Metrics is
// valid and records nothing, so components can be built without a registry.
type Metrics struct {
	Registry *prometheus.Registry

	chatMessages        *prometheus.CounterVec
	assistantDuration   *prometheus.HistogramVec
	statusCacheRequests *prometheus.CounterVec
	statusInvalidations prometheus.Counter
	notificationsDrop   *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		chatMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_messages_total",
				Help: "Chat messages handled, by outcome",
			},
			[]string{"outcome"},
		),
		assistantDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assistant_request_duration_seconds",
				Help:    "Latency of requests to the remote assistant API",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"endpoint"},
		),
		statusCacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "status_cache_requests_total",
				Help: "Status snapshot cache lookups, by result",
			},
			[]string{"result"},
		),
		statusInvalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "status_cache_invalidations_total",
				Help: "Status snapshot cache entries dropped by tag invalidation",
			},
		),
		notificationsDrop: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_dropped_total",
				Help: "Events not delivered because a subscriber buffer was full",
			},
			[]string{"event_type"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.chatMessages,
		m.assistantDuration,
		m.statusCacheRequests,
		m.statusInvalidations,
		m.notificationsDrop,
	)

	return m
}

func (m *Metrics) ChatMessage(outcome string) {
	if m != nil {
		m.chatMessages.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) AssistantRequest(endpoint string, seconds float64) {
	if m != nil {
		m.assistantDuration.WithLabelValues(endpoint).Observe(seconds)
	}
}

func (m *Metrics) StatusCache(result string) {
	if m != nil {
		m.statusCacheRequests.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) StatusInvalidated(entries int) {
	if m != nil && entries > 0 {
		m.statusInvalidations.Add(float64(entries))
	}
}

func (m *Metrics) NotificationDropped(eventType string) {
	if m != nil {
		m.notificationsDrop.WithLabelValues(eventType).Inc()
	}
}

// ChatMessages returns the counter for one chat outcome
func (m *Metrics) ChatMessages(outcome string) prometheus.Counter {
	return m.chatMessages.WithLabelValues(outcome)
}

// NotificationsDropped returns the drop counter for one event type
func (m *Metrics) NotificationsDropped(eventType string) prometheus.Counter {
	return m.notificationsDrop.WithLabelValues(eventType)
}
