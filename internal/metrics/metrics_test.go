package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FetchSucceeded(time.Millisecond, time.Unix(1700000000, 0))
	m.FetchFailed(time.Millisecond)
	m.FetchFailed(time.Millisecond)
	m.StaleResponse()
	m.Conversion(true)
	m.Conversion(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleTotal))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastUpdate))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("placeholder")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.FetchSucceeded(time.Second, time.Now())
		m.FetchFailed(time.Second)
		m.StaleResponse()
		m.Conversion(true)
	})
}
