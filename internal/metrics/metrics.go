// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Session Metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_sessions_active",
			Help: "Current number of dashboard sessions",
		},
	)

	SessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_sessions_closed_total",
			Help: "Total number of closed dashboard sessions",
		},
		[]string{"reason"}, // "deleted", "idle", "shutdown"
	)

	// Subscription Metrics
	SubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_subscriptions_active",
			Help: "Current number of open device subscriptions",
		},
	)

	SubscriptionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_subscription_events_total",
			Help: "Subscription lifecycle events",
		},
		[]string{"event"}, // "opened", "closed", "dial_failed", "dropped", "reconnect"
	)

	// Frame Metrics
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_frames_total",
			Help: "Inbound telemetry frames by outcome",
		},
		[]string{"outcome"}, // "accepted", "malformed", "discarded"
	)

	// Live State Metrics
	DevicesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_devices_live",
			Help: "Devices with fresh data across all sessions",
		},
	)

	DevicesStale = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_devices_stale",
			Help: "Devices whose last frame is older than the stale threshold across all sessions",
		},
	)

	FocusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_focus_changes_total",
			Help: "Focus changes by reason",
		},
		[]string{"reason"},
	)

	GroupResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_group_resolutions_total",
			Help: "Group resolution attempts by result",
		},
		[]string{"result"}, // "success", "failure", "superseded"
	)

	// Upstream Metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of upstream API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)

	// Device Store Metrics
	DeviceStoreLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_store_lookups_total",
			Help: "Static position lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active push WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of push messages queued to clients",
		},
		[]string{"type"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// NATS Metrics
	NATSReadingsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_readings_published_total",
			Help: "Readings published to NATS",
		},
	)

	NATSReadingsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_readings_dropped_total",
			Help: "Readings not published to NATS",
		},
		[]string{"reason"}, // "queue_full", "closed", "publish_error"
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSubscriptionEvent records a subscription lifecycle event and keeps
// the active gauge in step with opens and closes.
func RecordSubscriptionEvent(event string) {
	SubscriptionEvents.WithLabelValues(event).Inc()
	switch event {
	case "opened":
		SubscriptionsActive.Inc()
	case "closed":
		SubscriptionsActive.Dec()
	}
}

// RecordFrame records the outcome of one inbound frame.
func RecordFrame(outcome string) {
	FramesTotal.WithLabelValues(outcome).Inc()
}

// AddLiveDevices adjusts the live and stale device gauges by a delta.
func AddLiveDevices(liveDelta, staleDelta int) {
	if liveDelta != 0 {
		DevicesLive.Add(float64(liveDelta))
	}
	if staleDelta != 0 {
		DevicesStale.Add(float64(staleDelta))
	}
}

// RecordFocusChange records a focus change.
func RecordFocusChange(reason string) {
	FocusChanges.WithLabelValues(reason).Inc()
}

// RecordGroupResolution records a group resolution attempt.
func RecordGroupResolution(result string) {
	GroupResolutions.WithLabelValues(result).Inc()
}

// RecordUpstreamRequest records an upstream API call.
func RecordUpstreamRequest(operation string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	UpstreamRequestDuration.WithLabelValues(operation, result).Observe(duration.Seconds())
}

// RecordDeviceStoreLookup records a static position lookup.
func RecordDeviceStoreLookup(result string) {
	DeviceStoreLookups.WithLabelValues(result).Inc()
}

// RecordCacheAccess records a cache hit or miss.
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}

// RecordSessionClosed records a closed session.
func RecordSessionClosed(reason string) {
	SessionsClosed.WithLabelValues(reason).Inc()
	SessionsActive.Dec()
}

// RecordNATSPublish records a published reading.
func RecordNATSPublish() {
	NATSReadingsPublished.Inc()
}

// RecordNATSDrop records a reading that was not published.
func RecordNATSDrop(reason string) {
	NATSReadingsDropped.WithLabelValues(reason).Inc()
}
