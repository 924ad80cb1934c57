package service

import "github.com/prometheus/client_golang/prometheus"

var (
	blocksMined = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hardmine_blocks_mined_total",
		Help: "Blocks committed by the scheduler",
	})
	blockFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hardmine_block_failures_total",
		Help: "Failed block attempts by outcome",
	}, []string{"outcome"})
	blockTickSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hardmine_block_tick_seconds",
		Help:    "Duration of a block tick including retries",
		Buckets: prometheus.DefBuckets,
	})
	networkHashrate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hardmine_network_hashrate",
		Help: "Total effective hashrate of the last committed block",
	})
	activeMinersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hardmine_active_miners",
		Help: "Contributors to the last committed block",
	})
	rewardsDistributed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hardmine_rewards_distributed_total",
		Help: "CS credited by block rewards",
	})
)

func init() {
	prometheus.MustRegister(blocksMined, blockFailures, blockTickSeconds, networkHashrate, activeMinersGauge, rewardsDistributed)
}
