package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WSClients tracks currently attached dashboard connections.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cellbench_ws_clients",
		Help: "Number of connected websocket clients.",
	})

	// WSMessages counts frames broadcast over the live feed by type.
	WSMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cellbench_ws_messages_total",
		Help: "Websocket messages broadcast, by message type.",
	}, []string{"type"})

	// StationState gauges how many stations sit in each state.
	StationState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cellbench_station_state",
		Help: "Stations per state.",
	}, []string{"state"})

	// HTTPRequests counts REST traffic by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cellbench_http_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "path", "code"})
)
