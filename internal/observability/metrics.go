package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	messagesSentTotal    *prometheus.CounterVec
	pollsServedTotal     prometheus.Counter
	pollBatchSize        prometheus.Histogram
	reactionTogglesTotal *prometheus.CounterVec
	unreadCacheTotal     *prometheus.CounterVec
	liveConnections      prometheus.Gauge
	liveBroadcastsTotal  *prometheus.CounterVec
	sseClients           prometheus.Gauge
	notificationsTotal   *prometheus.CounterVec
	uploadRequestsTotal  *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	uploadLatency        prometheus.Histogram
	assistantCallsTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "huddle_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_messages_sent_total",
			Help: "Messages appended, labelled by target kind and placement.",
		}, []string{"target", "placement"})

		pollsServedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "huddle_polls_served_total",
			Help: "Number of new-since poll requests answered.",
		})

		pollBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "huddle_poll_batch_size",
			Help:    "Number of messages returned by a poll.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		})

		reactionTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_reaction_toggles_total",
			Help: "Reaction toggles by resulting action.",
		}, []string{"action"})

		unreadCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_unread_cache_total",
			Help: "Unread counter cache lookups by result.",
		}, []string{"result"})

		liveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_live_connections",
			Help: "Open live feed websocket connections.",
		})

		liveBroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_live_broadcasts_total",
			Help: "Live feed events delivered, labelled by source.",
		}, []string{"source"})

		sseClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_notification_stream_clients",
			Help: "Connected notification stream subscribers.",
		})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_notifications_published_total",
			Help: "Notifications published, labelled by type.",
		}, []string{"type"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_upload_requests_total",
			Help: "Stored uploads by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_upload_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "huddle_upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		assistantCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_assistant_calls_total",
			Help: "Assistant calls by operation and outcome.",
		}, []string{"operation", "outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			messagesSentTotal,
			pollsServedTotal,
			pollBatchSize,
			reactionTogglesTotal,
			unreadCacheTotal,
			liveConnections,
			liveBroadcastsTotal,
			sseClients,
			notificationsTotal,
			uploadRequestsTotal,
			uploadRejectedTotal,
			uploadLatency,
			assistantCallsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// MessagesSent counts appended messages.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// PollsServed counts answered polls.
func PollsServed() prometheus.Counter {
	RegisterMetrics()
	return pollsServedTotal
}

// PollBatchSize observes the size of each poll response.
func PollBatchSize() prometheus.Histogram {
	RegisterMetrics()
	return pollBatchSize
}

// ReactionToggles counts reaction toggles by action.
func ReactionToggles() *prometheus.CounterVec {
	RegisterMetrics()
	return reactionTogglesTotal
}

// UnreadCache counts unread cache hits and misses.
func UnreadCache() *prometheus.CounterVec {
	RegisterMetrics()
	return unreadCacheTotal
}

// LiveConnections tracks open websocket clients.
func LiveConnections() prometheus.Gauge {
	RegisterMetrics()
	return liveConnections
}

// LiveBroadcasts counts live events by source (local, redis, nats).
func LiveBroadcasts() *prometheus.CounterVec {
	RegisterMetrics()
	return liveBroadcastsTotal
}

// SSEClients tracks notification stream subscribers.
func SSEClients() prometheus.Gauge {
	RegisterMetrics()
	return sseClients
}

// NotificationsPublished counts notifications fanned out to users.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// UploadRequests counts stored uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency observes upload handling time.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}

// AssistantCalls counts summaries and reply suggestions. Outcome is one of
// ok, empty, unavailable or disabled.
func AssistantCalls() *prometheus.CounterVec {
	RegisterMetrics()
	return assistantCallsTotal
}
