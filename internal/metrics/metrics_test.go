package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	EventsTotal.WithLabelValues("BUY").Inc()
	SinkFailures.WithLabelValues("telegram").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["engine_events_total"])
	assert.True(t, names["sink_failures_total"])
	assert.True(t, names["engine_open_positions"])
}

func TestCounterValues(t *testing.T) {
	before := testutil.ToFloat64(CandlesRejected.WithLabelValues("NSE_EQ|X"))
	CandlesRejected.WithLabelValues("NSE_EQ|X").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CandlesRejected.WithLabelValues("NSE_EQ|X")))

	OpenPositions.Set(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(OpenPositions))
}
