package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})
	NotificationsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Notifications persisted, by type",
	}, []string{"type"})
	PushesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_pushes_sent_total",
		Help: "Frames delivered to live connections",
	})
	PushesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_pushes_dropped_total",
		Help: "Frames dropped (closed connection or full buffer)",
	})
	InvalidEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "event_consumer_invalid_total",
		Help: "Domain events rejected by candidate validation",
	})
)

func Init() {
	prometheus.MustRegister(Connections, NotificationsCreated, PushesSent, PushesDropped, InvalidEvents)
}

// Handler returns the scrape endpoint, served on the metrics port by cmd/server.
func Handler() http.Handler {
	return promhttp.Handler()
}
