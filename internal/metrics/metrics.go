package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CyclesTotal counts completed processing cycles
var CyclesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "token_alerts_cycles_total",
		Help: "Total number of alert processing cycles run",
	},
)

// CycleDuration records how long each processing cycle takes
var CycleDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "token_alerts_cycle_duration_seconds",
		Help:    "Duration in seconds of alert processing cycles",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	},
)

var (
	TriggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_alerts_triggers_total",
			Help: "Total number of threshold triggers by kind",
		},
		[]string{"kind"},
	)

	SuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_alerts_suppressed_total",
			Help: "Total number of triggers suppressed by cooldown",
		},
		[]string{"kind"},
	)

	ChannelSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_alerts_channel_sends_total",
			Help: "Total number of channel send attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	MarketFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_alerts_market_fetch_total",
			Help: "Total number of market data fetches by result",
		},
		[]string{"result"},
	)

	CooldownEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "token_alerts_cooldown_entries",
			Help: "Number of cooldown entries held in memory",
		},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, CycleDuration)
	prometheus.MustRegister(TriggersTotal, SuppressedTotal, ChannelSendsTotal, MarketFetchTotal, CooldownEntries)
}
