package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("refdata:warmup").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("refdata:warmup").End(boom), boom)

	require.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("refdata:warmup", "success")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("refdata:warmup", "failure")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.failures.WithLabelValues("refdata:warmup")), 0)
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("x").End(boom), boom)
	m.SetRefdataItems("customers", 3)
}

func TestSetRefdataItems(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetRefdataItems("customers", 12)
	require.InDelta(t, 12, testutil.ToFloat64(m.items.WithLabelValues("customers")), 0)
}
