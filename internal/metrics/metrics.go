// Package metrics holds the process-wide Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Interactions counts recorded ratings by action.
	Interactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchchat_interactions_total",
		Help: "Recorded interactions by action",
	}, []string{"action"})

	MutualMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchchat_mutual_matches_total",
		Help: "Pairs that became mutual",
	})

	ChatRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchchat_chat_requests_total",
		Help: "Chat requests sent",
	})

	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchchat_rooms_created_total",
		Help: "Chat rooms opened by an accepted request",
	})

	MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchchat_messages_total",
		Help: "Chat messages persisted",
	})

	// GatewayRejections counts socket events refused by reason.
	GatewayRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchchat_gateway_rejections_total",
		Help: "Socket events rejected by reason",
	}, []string{"reason"})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchchat_gateway_connections",
		Help: "Sockets currently registered with the hub",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
