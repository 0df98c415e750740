package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор prometheus-метрик сервиса.
// Все методы безопасны для nil-получателя: если метрики выключены в конфиге,
// компоненты получают nil и вызовы становятся no-op.
type Metrics struct {
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	dbQueryDuration *prometheus.HistogramVec
	dbOpenConns     prometheus.Gauge
	dbInUseConns    prometheus.Gauge
	dbIdleConns     prometheus.Gauge
	dbWaitCount     prometheus.Gauge

	bookingTransitions *prometheus.CounterVec
	bookingConflicts   prometheus.Counter

	notifications *prometheus.CounterVec

	signalingRooms   prometheus.Gauge
	signalingFrames  *prometheus.CounterVec
	signalingDropped *prometheus.CounterVec
}

// New регистрирует метрики в глобальном registry (его отдаёт promhttp.Handler).
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry регистрирует метрики в переданном registerer.
func NewWithRegistry(serviceName string, reg prometheus.Registerer) *Metrics {
	labels := prometheus.Labels{"service": serviceName}
	factory := func(c prometheus.Collector) prometheus.Collector {
		reg.MustRegister(c)
		return c
	}

	return &Metrics{
		httpRequests: factory(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests.",
			ConstLabels: labels,
		}, []string{"method", "route", "status"})).(*prometheus.CounterVec),
		httpRequestDuration: factory(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"})).(*prometheus.HistogramVec),

		dbQueryDuration: factory(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query latency.",
			ConstLabels: labels,
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"})).(*prometheus.HistogramVec),
		dbOpenConns: factory(prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_open_connections", Help: "Open DB connections.", ConstLabels: labels,
		})).(prometheus.Gauge),
		dbInUseConns: factory(prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_in_use_connections", Help: "DB connections in use.", ConstLabels: labels,
		})).(prometheus.Gauge),
		dbIdleConns: factory(prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_idle_connections", Help: "Idle DB connections.", ConstLabels: labels,
		})).(prometheus.Gauge),
		dbWaitCount: factory(prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_wait_count", Help: "Total connections waited for.", ConstLabels: labels,
		})).(prometheus.Gauge),

		bookingTransitions: factory(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "booking_transitions_total",
			Help:        "Booking status transitions.",
			ConstLabels: labels,
		}, []string{"from", "to"})).(*prometheus.CounterVec),
		bookingConflicts: factory(prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "booking_conflicts_total",
			Help:        "Booking attempts rejected because the slot overlaps.",
			ConstLabels: labels,
		})).(prometheus.Counter),

		notifications: factory(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "booking_notifications_total",
			Help:        "Status change notifications by result.",
			ConstLabels: labels,
		}, []string{"result"})).(*prometheus.CounterVec),

		signalingRooms: factory(prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signaling_rooms", Help: "Live signaling rooms.", ConstLabels: labels,
		})).(prometheus.Gauge),
		signalingFrames: factory(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "signaling_frames_relayed_total",
			Help:        "Frames relayed between session participants.",
			ConstLabels: labels,
		}, []string{"type"})).(*prometheus.CounterVec),
		signalingDropped: factory(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "signaling_frames_dropped_total",
			Help:        "Frames dropped by reason.",
			ConstLabels: labels,
		}, []string{"reason"})).(*prometheus.CounterVec),
	}
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveDBQuery(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetDBPoolStats обновляет gauge'и пула соединений.
func (m *Metrics) SetDBPoolStats(open, inUse, idle int, waitCount int64) {
	if m == nil {
		return
	}
	m.dbOpenConns.Set(float64(open))
	m.dbInUseConns.Set(float64(inUse))
	m.dbIdleConns.Set(float64(idle))
	m.dbWaitCount.Set(float64(waitCount))
}

func (m *Metrics) IncBookingTransition(from, to string) {
	if m == nil {
		return
	}
	m.bookingTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncBookingConflict() {
	if m == nil {
		return
	}
	m.bookingConflicts.Inc()
}

// IncNotification result: delivered|retried|failed|dropped.
func (m *Metrics) IncNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) AddSignalingRooms(delta int) {
	if m == nil {
		return
	}
	m.signalingRooms.Add(float64(delta))
}

func (m *Metrics) IncFrameRelayed(frameType string) {
	if m == nil {
		return
	}
	m.signalingFrames.WithLabelValues(frameType).Inc()
}

func (m *Metrics) IncFrameDropped(reason string) {
	if m == nil {
		return
	}
	m.signalingDropped.WithLabelValues(reason).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
