// monitor/monitor.go
package monitor

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers       prometheus.Gauge
	ActiveRooms         prometheus.Gauge
	MessagesReceived    *prometheus.CounterVec
	MalformedFrames     prometheus.Counter
	MessageLatency      prometheus.Histogram
	GenerationDuration  prometheus.Histogram
	GenerationAttempts  prometheus.Histogram
	GenerationFallbacks prometheus.Counter
	RoundsFinished      *prometheus.CounterVec
}

// NewMetrics registers every collector on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of open rooms",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Decoded client messages by kind",
		}, []string{"kind"}),
		MalformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Frames dropped because they failed to decode",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Time spent handling one client message in the room loop",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock time to produce a layout",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		GenerationAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_attempts",
			Help:      "Shuffles tried per generated layout",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		GenerationFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_fallbacks_total",
			Help:      "Layouts accepted without a certificate after the budget ran out",
		}),
		RoundsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_finished_total",
			Help:      "Finished rounds by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.MessagesReceived,
		m.MalformedFrames,
		m.MessageLatency,
		m.GenerationDuration,
		m.GenerationAttempts,
		m.GenerationFallbacks,
		m.RoundsFinished,
	)

	return m
}

// Monitor wraps Metrics behind nil-safe helpers so packages can take an
// optional *Monitor.
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

// NewMonitor builds a monitor on its own registry, so tests can create as
// many as they like.
func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	m := &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started",
		}, func() float64 {
			return time.Since(m.startTime).Seconds()
		}),
	)
	return m
}

func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

func (m *Monitor) Metrics() *Metrics { return m.metrics }

// Handler serves the registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Monitor) IncOnlinePlayers() {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	if m == nil {
		return
	}
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	if m == nil {
		return
	}
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived(kind string) {
	if m == nil {
		return
	}
	m.metrics.MessagesReceived.WithLabelValues(kind).Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

// RequestCount is the number of messages counted since start.
func (m *Monitor) RequestCount() int64 {
	if m == nil {
		return 0
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.requestCount
}

func (m *Monitor) IncMalformedFrames() {
	if m == nil {
		return
	}
	m.metrics.MalformedFrames.Inc()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

// ObserveGeneration records one finished generation run.
func (m *Monitor) ObserveGeneration(duration time.Duration, attempts int, fallback bool) {
	if m == nil {
		return
	}
	m.metrics.GenerationDuration.Observe(duration.Seconds())
	m.metrics.GenerationAttempts.Observe(float64(attempts))
	if fallback {
		m.metrics.GenerationFallbacks.Inc()
	}
}

func (m *Monitor) IncRoundsFinished(outcome string) {
	if m == nil {
		return
	}
	m.metrics.RoundsFinished.WithLabelValues(outcome).Inc()
}
