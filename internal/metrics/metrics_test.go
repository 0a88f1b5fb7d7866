package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_RegistersAllCollectors(t *testing.T) {
	r := NewRegistry()

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "no samples recorded yet")

	r.StartCycle("BTCUSDT").Stop("ok")
	r.RecordRegimeSwitch("BTCUSDT", "chop", "healthy_bull")

	families, err = r.Gatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestCycleTimer_RecordsDurationAndCount(t *testing.T) {
	r := NewRegistry()

	r.StartCycle("ETHUSDT").Stop("ok")

	metric := &dto.Metric{}
	counter, err := r.CyclesTotal.GetMetricWithLabelValues("ETHUSDT", "ok")
	require.NoError(t, err)
	require.NoError(t, counter.Write(metric))
	assert.Equal(t, float64(1), metric.GetCounter().GetValue())
}

func TestRecordRegimeSwitch_FlipsActiveGauge(t *testing.T) {
	r := NewRegistry()

	r.RecordRegimeSwitch("BTCUSDT", "chop", "healthy_bull")

	newMetric := &dto.Metric{}
	gauge, err := r.ActiveRegime.GetMetricWithLabelValues("BTCUSDT", "healthy_bull")
	require.NoError(t, err)
	require.NoError(t, gauge.Write(newMetric))
	assert.Equal(t, float64(1), newMetric.GetGauge().GetValue())

	oldMetric := &dto.Metric{}
	gauge, err = r.ActiveRegime.GetMetricWithLabelValues("BTCUSDT", "chop")
	require.NoError(t, err)
	require.NoError(t, gauge.Write(oldMetric))
	assert.Equal(t, float64(0), oldMetric.GetGauge().GetValue())
}
