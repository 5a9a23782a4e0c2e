package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_ticks_total", Help: "Market ticks ingested"},
		[]string{"symbol"},
	)
	TicksLate = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "feed_ticks_late_total", Help: "Ticks dropped as older than the open bucket"},
	)
	CandlesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_candles_processed_total", Help: "Candles accepted by the engine"},
		[]string{"symbol"},
	)
	CandlesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_candles_rejected_total", Help: "Out-of-order candles rejected by the engine"},
		[]string{"symbol"},
	)
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_events_total", Help: "Signal events emitted"},
		[]string{"kind"},
	)
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "engine_events_dropped_total", Help: "Events dropped because the dispatch queue was full"},
	)
	SinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sink_failures_total", Help: "Failed event deliveries"},
		[]string{"sink"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "engine_open_positions", Help: "Synthetic positions currently open"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, TicksLate,
		CandlesProcessed, CandlesRejected,
		EventsTotal, EventsDropped,
		SinkFailures, OpenPositions,
	)
}
