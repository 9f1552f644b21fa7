package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Gauges
	connectionsActive prometheus.Gauge
	roomsActive       prometheus.Gauge

	// Counters
	connectionsTotal prometheus.Counter
	admissionsTotal  *prometheus.CounterVec
	denialsTotal     *prometheus.CounterVec
	broadcastsTotal  prometheus.Counter
	droppedMessages  prometheus.Counter

	// Histograms
	admissionDuration prometheus.Histogram
	sessionDuration   prometheus.Histogram
}

// NewPrometheusCollector registers the gateway metrics on reg. Pass nil to
// use the default registerer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "notemesh_connections_active",
			Help: "Number of currently open WebSocket connections",
		}),

		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "notemesh_rooms_active",
			Help: "Number of note rooms with at least one member",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "notemesh_connections_total",
			Help: "Total number of WebSocket connections accepted",
		}),

		admissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notemesh_admissions_total",
			Help: "Total admissions by credential kind",
		}, []string{"credential"}),

		denialsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notemesh_denials_total",
			Help: "Total connection denials by reason",
		}, []string{"reason"}),

		broadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "notemesh_broadcasts_total",
			Help: "Total messages fanned out to room members",
		}),

		droppedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "notemesh_dropped_messages_total",
			Help: "Messages dropped because a member's send buffer was full",
		}),

		admissionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "notemesh_admission_duration_seconds",
			Help:    "Duration of access checks at connect time",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "notemesh_session_duration_seconds",
			Help:    "Duration of WebSocket sessions",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

func (c *PrometheusCollector) ConnectionOpened() {
	c.connectionsActive.Inc()
	c.connectionsTotal.Inc()
}

func (c *PrometheusCollector) ConnectionClosed(duration time.Duration) {
	c.connectionsActive.Dec()
	c.sessionDuration.Observe(duration.Seconds())
}

func (c *PrometheusCollector) SetActiveRooms(n int) {
	c.roomsActive.Set(float64(n))
}

func (c *PrometheusCollector) RecordAdmission(credential string, duration time.Duration) {
	c.admissionsTotal.WithLabelValues(credential).Inc()
	c.admissionDuration.Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordDenial(reason string) {
	c.denialsTotal.WithLabelValues(reason).Inc()
}

func (c *PrometheusCollector) RecordBroadcast(recipients int) {
	c.broadcastsTotal.Add(float64(recipients))
}

func (c *PrometheusCollector) RecordDroppedMessage() {
	c.droppedMessages.Inc()
}
