package metrics_test

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/arlobridge/crawlcore/internal/metrics"
)

func gaugeValue(t *testing.T, g interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	if m.GetGauge() != nil {
		return m.GetGauge().GetValue()
	}
	return m.GetCounter().GetValue()
}

func TestNew_RegistersAllCollectors(t *testing.T) {
	m := metrics.New()
	require.NotNil(t, m.Registry)

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 7)
}

func TestPagesCrawled_Increments(t *testing.T) {
	m := metrics.New()
	m.PagesCrawled.Inc()
	m.PagesCrawled.Inc()

	require.InDelta(t, 2, gaugeValue(t, m.PagesCrawled), 0.0001)
}

func TestHandoffDepth_Settable(t *testing.T) {
	m := metrics.New()
	m.HandoffDepth.Set(42)

	require.InDelta(t, 42, gaugeValue(t, m.HandoffDepth), 0.0001)
}
