package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections tracks currently open websockets
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connections_active",
		Help: "Number of open websocket connections.",
	})

	// Broadcasts counts fan-out requests by event name
	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_broadcasts_total",
		Help: "Broadcasts requested, by event.",
	}, []string{"event"})

	// Delivered counts frames queued to individual connections
	Delivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_delivered_total",
		Help: "Frames queued for delivery to a connection.",
	})

	// DroppedUnjoined counts messages silently dropped because the sender
	// never joined a room
	DroppedUnjoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_unjoined_dropped_total",
		Help: "Messages dropped because the sender had no room membership.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
