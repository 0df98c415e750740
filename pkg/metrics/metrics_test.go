package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/x", 200, time.Millisecond)
		m.IncBookingTransition("pending", "confirmed")
		m.IncFrameDropped("slow_consumer")
		m.AddSignalingRooms(1)
	})
}

func TestMetrics_CountsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("scheduler", reg)

	m.IncBookingTransition("pending", "confirmed")
	m.IncBookingTransition("pending", "confirmed")
	m.IncBookingConflict()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingTransitions.WithLabelValues("pending", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingConflicts))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "4xx", statusClass(409))
	assert.Equal(t, "5xx", statusClass(503))
}
