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

	require.NoError(t, m.Track("ledger:gl_integrity").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("ledger:gl_integrity").End(boom), boom)
	m.Skip("ledger:event", "validation")

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:gl_integrity", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:gl_integrity", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("ledger:gl_integrity")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("ledger:event", "validation")))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("ledger:event").End(nil))
	m.Skip("ledger:event", "validation")
}
