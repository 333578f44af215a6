package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Number of live WebSocket connections",
	})

	envelopesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_ws_envelopes_total",
		Help: "Inbound envelopes processed, by type",
	}, []string{"type"})

	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_ws_broadcasts_total",
		Help: "Events fanned out to connections, by type",
	}, []string{"type"})

	droppedSendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_ws_dropped_sends_total",
		Help: "Broadcast deliveries skipped because a connection was closed or backed up",
	})

	rejectedHandshakesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_ws_rejected_handshakes_total",
		Help: "Connections closed during the authentication handshake, by reason",
	}, []string{"reason"})
)
