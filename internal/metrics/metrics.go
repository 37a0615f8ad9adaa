package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the signal monitor.
type Metrics struct {
	TicksTotal         prometheus.Counter
	FetchFailuresTotal prometheus.Counter
	SignalsTotal       *prometheus.CounterVec // labels: signal
	LastPrice          prometheus.Gauge

	// Indicator engine metrics
	IndicatorComputeDur prometheus.Histogram
	IndicatorsAvailable prometheus.Gauge

	// Price history
	HistoryLen       prometheus.Gauge
	HistoryEvictions prometheus.Counter

	// Persistence sinks
	SinkWriteDur      *prometheus.HistogramVec // labels: sink
	SinkWriteFailures *prometheus.CounterVec   // labels: sink

	// Circuit breaker metrics
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedWrites      prometheus.Counter
	RedisDroppedWrites       prometheus.Counter

	// Price stream
	StreamReconnects prometheus.Counter

	// Live feed and alerts
	WSClients     prometheus.Gauge
	AlertFailures prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalmon_ticks_total",
			Help: "Ticks that produced a signal record",
		}),
		FetchFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalmon_fetch_failures_total",
			Help: "Ticks skipped because the price could not be fetched",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalmon_signals_total",
			Help: "Signals emitted (by signal)",
		}, []string{"signal"}),
		LastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalmon_last_price",
			Help: "Most recently observed price",
		}),

		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalmon_indicator_compute_duration_seconds",
			Help:    "Indicator and classifier latency per tick",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		IndicatorsAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalmon_indicators_available",
			Help: "Number of indicators with enough history on the last tick",
		}),

		HistoryLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalmon_history_len",
			Help: "Prices currently held in the history buffer",
		}),
		HistoryEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalmon_history_evictions_total",
			Help: "Prices evicted from the full history buffer",
		}),

		SinkWriteDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalmon_sink_write_duration_seconds",
			Help:    "Record append latency per sink",
			Buckets: prometheus.DefBuckets,
		}, []string{"sink"}),
		SinkWriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalmon_sink_write_failures_total",
			Help: "Failed record appends per sink",
		}, []string{"sink"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalmon_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalmon_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalmon_redis_buffered_writes_total",
			Help: "Writes buffered locally during Redis circuit breaker open state",
		}),
		RedisDroppedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalmon_redis_dropped_writes_total",
			Help: "Buffered writes dropped because the local buffer was full",
		}),

		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalmon_stream_reconnects_total",
			Help: "Ticker WebSocket reconnection attempts",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalmon_ws_clients",
			Help: "Connected live feed WebSocket clients",
		}),
		AlertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalmon_alert_failures_total",
			Help: "Signal alerts that could not be delivered",
		}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.FetchFailuresTotal,
		m.SignalsTotal,
		m.LastPrice,
		m.IndicatorComputeDur,
		m.IndicatorsAvailable,
		m.HistoryLen,
		m.HistoryEvictions,
		m.SinkWriteDur,
		m.SinkWriteFailures,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedWrites,
		m.RedisDroppedWrites,
		m.StreamReconnects,
		m.WSClients,
		m.AlertFailures,
	)

	return m
}
