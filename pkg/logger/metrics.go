package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics shared across the process. Registered via promauto and
// exposed by the dashboard's /metrics endpoint.

var (
	FeedEventsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_decoded_total",
			Help: "Total number of feed events decoded, by event type",
		},
		[]string{"event_type"},
	)

	FeedDecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_decode_failures_total",
			Help: "Total number of feed frames dropped due to decode errors",
		},
		[]string{"event_type"},
	)

	FeedReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_resubscriptions_total",
			Help: "Total number of feed resubscriptions (full handshake runs)",
		},
	)

	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_emitted_total",
			Help: "Total number of breakout alerts emitted, by kind",
		},
		[]string{"kind"},
	)

	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Total number of failed notification deliveries",
		},
	)

	BaselineFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "baseline_source_fallbacks_total",
			Help: "Times an average-volume source failed and the next layer was tried",
		},
		[]string{"source"},
	)

	DashboardClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_ws_clients",
			Help: "Number of connected dashboard websocket clients",
		},
	)
)
