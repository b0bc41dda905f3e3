package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCountsIncrements(t *testing.T) {
	c := New("ied1")

	c.ReportDecoded()
	c.ReportDecoded()
	c.DecodeMismatch()
	c.RcbEnableFailed("reserve")
	c.RcbEnableFailed("reserve")
	c.RcbEnableFailed("enable")
	c.BytesRead(128)
	c.BytesRead(32)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.reportsDecoded))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.decodeMismatches))
	assert.Equal(t, float64(160), testutil.ToFloat64(c.bytesRead))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.rcbEnableFailed.WithLabelValues("reserve")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.rcbEnableFailed.WithLabelValues("enable")))
}

func TestCollectorCollectEmitsOneMetricPerSeries(t *testing.T) {
	c := New("ied1")
	c.ReportDecoded()
	c.DecodeMismatch()
	c.RcbEnableFailed("reserve")
	c.BytesRead(1)

	// reportsDecoded, decodeMismatches, bytesRead, plus one rcbEnableFailed
	// series for the single "reserve" label value touched above.
	count := testutil.CollectAndCount(c)
	assert.Equal(t, 4, count)
}
