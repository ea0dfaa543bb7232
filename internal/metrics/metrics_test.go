package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNewMetrics_RegistersAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetFlowTableSize(3)
	require.Equal(t, float64(3), gaugeValue(t, m.FlowTableSize))

	m.RecordDiscoveryAttempt()
	m.RecordDiscoveryAttempt()
	require.Equal(t, float64(2), counterValue(t, m.DiscoveryAttempts))

	m.RecordDiscoveryFailure()
	require.Equal(t, float64(1), counterValue(t, m.DiscoveryFailures))

	m.RecordFrameDropped("not_mctp")
	m.RecordRequestServed("GetEndpointID", "Success")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families, "Gather() must report the five registered collectors")
}

func TestNewMetrics_NilRegistererSkipsRegistration(t *testing.T) {
	m := NewMetrics(nil)
	m.SetFlowTableSize(1) // must not panic without a registry
	require.Equal(t, float64(1), gaugeValue(t, m.FlowTableSize))
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.SetFlowTableSize(5)
	m.RecordFrameDropped("not_mctp")
	m.RecordDiscoveryAttempt()
	m.RecordDiscoveryFailure()
	m.RecordRequestServed("GetEndpointID", "Success")
	// Reaching here without a panic is the test.
}
