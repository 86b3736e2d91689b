package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, "2xx", StatusCategory(201))
	assert.Equal(t, "3xx", StatusCategory(302))
	assert.Equal(t, "4xx", StatusCategory(404))
	assert.Equal(t, "5xx", StatusCategory(503))
}

func TestRecordStockMovement(t *testing.T) {
	before := testutil.ToFloat64(StockMovementCounter.WithLabelValues("reserve"))
	RecordStockMovement("reserve")
	assert.Equal(t, before+1, testutil.ToFloat64(StockMovementCounter.WithLabelValues("reserve")))
}

func TestUpdateLowStock(t *testing.T) {
	UpdateLowStock(42, 3)
	assert.Equal(t, float64(3), testutil.ToFloat64(LowStockGauge.WithLabelValues("42")))
}

func TestTrackDBOperationMeasuresFromStart(t *testing.T) {
	TrackDBOperation("track_window")(time.Now().Add(-2 * time.Second))

	var m dto.Metric
	h, ok := DBOperationDuration.WithLabelValues("track_window").(prometheus.Histogram)
	require.True(t, ok)
	require.NoError(t, h.Write(&m))
	assert.EqualValues(t, 1, m.GetHistogram().GetSampleCount())
	assert.GreaterOrEqual(t, m.GetHistogram().GetSampleSum(), 2.0)
}
