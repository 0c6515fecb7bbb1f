// Package metrics provides Prometheus instrumentation for the chat service:
// live connection counts, event throughput, and message volume.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WSConnections tracks the current number of live WebSocket connections.
	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quickchat_ws_connections",
		Help: "Current number of live WebSocket connections",
	})

	// WSEvents counts incoming WebSocket events by type.
	WSEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quickchat_ws_events_total",
		Help: "Total number of incoming WebSocket events",
	}, []string{"type"})

	// MessagesSent counts messages accepted by the delivery pipeline,
	// labeled by message type ("text" or "image").
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quickchat_messages_sent_total",
		Help: "Total number of messages persisted and fanned out",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(WSConnections, WSEvents, MessagesSent)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
