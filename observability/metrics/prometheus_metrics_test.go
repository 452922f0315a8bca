package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newForTest(t *testing.T) *PrometheusMetrics {
	t.Helper()
	m, err := New("test", prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	metrics := newForTest(t)

	assert.NotNil(t, metrics)
	assert.Equal(t, "test", metrics.serviceName)
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := New("test", reg)
	require.NoError(t, err)

	_, err = New("test", reg)
	assert.Error(t, err)
}

func TestPrometheusMetrics_RecordSuccess(t *testing.T) {
	metrics := newForTest(t)

	metrics.RecordSuccess("download")
	metrics.RecordSuccess("download")
	metrics.RecordSuccess("extract")

	downloadCount := testutil.ToFloat64(metrics.processedTotal.WithLabelValues("success", "download"))
	extractCount := testutil.ToFloat64(metrics.processedTotal.WithLabelValues("success", "extract"))

	assert.Equal(t, 2.0, downloadCount)
	assert.Equal(t, 1.0, extractCount)
}

func TestPrometheusMetrics_RecordError(t *testing.T) {
	metrics := newForTest(t)

	metrics.RecordError("download", "transport")
	metrics.RecordError("download", "transport")
	metrics.RecordError("download", "config")

	errorCount := testutil.ToFloat64(metrics.processedTotal.WithLabelValues("error", "download"))
	assert.Equal(t, 3.0, errorCount)

	transportErrors := testutil.ToFloat64(metrics.errorsTotal.WithLabelValues("transport", "download"))
	configErrors := testutil.ToFloat64(metrics.errorsTotal.WithLabelValues("config", "download"))

	assert.Equal(t, 2.0, transportErrors)
	assert.Equal(t, 1.0, configErrors)
}

func TestPrometheusMetrics_RecordBytes(t *testing.T) {
	metrics := newForTest(t)

	metrics.RecordBytes("s3", 2048)
	metrics.RecordBytes("s3", 4096)

	count := testutil.CollectAndCount(metrics.payloadBytes)
	assert.Equal(t, 1, count)
}

func TestPrometheusMetrics_Operations(t *testing.T) {
	metrics := newForTest(t)

	metrics.StartOperation("download")
	metrics.StartOperation("download")
	metrics.StartOperation("extract")

	downloadGauge := testutil.ToFloat64(metrics.inProgress.WithLabelValues("download"))
	extractGauge := testutil.ToFloat64(metrics.inProgress.WithLabelValues("extract"))

	assert.Equal(t, 2.0, downloadGauge)
	assert.Equal(t, 1.0, extractGauge)

	metrics.EndOperation("download")
	metrics.EndOperation("extract")

	downloadGauge = testutil.ToFloat64(metrics.inProgress.WithLabelValues("download"))
	extractGauge = testutil.ToFloat64(metrics.inProgress.WithLabelValues("extract"))

	assert.Equal(t, 1.0, downloadGauge)
	assert.Equal(t, 0.0, extractGauge)
}
