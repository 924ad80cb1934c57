package ws

import "github.com/prometheus/client_golang/prometheus"

var connectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "hardmine_ws_connections",
	Help: "Open websocket connections",
})

func init() {
	prometheus.MustRegister(connectedClients)
}
