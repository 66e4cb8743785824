// Package metrics defines the Prometheus instrumentation for the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Browser and authentication metrics
var (
	BrowserLaunchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "browser_launches_total",
			Help: "Total browser engine launches",
		},
	)

	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Authentication attempts by mode (cookie, login) and outcome",
		},
		[]string{"mode", "outcome"},
	)
)

// Page session metrics
var (
	ActivePageSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_page_sessions",
			Help: "Currently open browsing contexts",
		},
	)

	PageSessionsOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_sessions_opened_total",
			Help: "Page session open attempts by outcome (ok, not_live, error)",
		},
		[]string{"outcome"},
	)

	TargetCapRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "target_cap_rejections_total",
			Help: "Stream requests rejected by the per-target session cap",
		},
	)

	OpenBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "page_open_breaker_state",
			Help: "Circuit breaker around page opening: 0=closed, 1=half-open, 2=open",
		},
	)
)

// Stream delivery metrics
var (
	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_events_total",
			Help: "Events relayed to clients by type",
		},
		[]string{"type"},
	)

	StreamErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_errors_total",
			Help: "In-band error events emitted to clients",
		},
	)

	ConnectedClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "connected_clients",
			Help: "Currently connected clients by transport (sse, websocket)",
		},
		[]string{"transport"},
	)
)
