package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_active_connections",
		Help: "Live websocket connections registered in the hub.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages accepted across both gateways.",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_ws_events_dropped_total",
		Help: "Outbound events dropped because a client send buffer was full.",
	})
)
