package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("recalculate_lots").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("recalculate_lots").End(boom), boom)
	require.ErrorIs(t, m.Track("recalculate_lots").Skipped(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("recalculate_lots", StatusSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("recalculate_lots", StatusFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("recalculate_lots", StatusSkipped)))
	require.Positive(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("recalculate_lots")))
}

func TestObserveReport(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveReport("sync_main_stock", 7, 2)
	m.ObserveReport("sync_main_stock", 7, 0)

	require.Equal(t, 14.0, testutil.ToFloat64(m.scanned.WithLabelValues("sync_main_stock")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.changed.WithLabelValues("sync_main_stock")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("recalculate_lots").End(nil))
	m.ObserveReport("recalculate_lots", 1, 1)
}
