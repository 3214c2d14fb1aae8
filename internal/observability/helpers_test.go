package observability

import (
	"context"
	"strings"
	"testing"

	"socialdash/internal/models"
	"socialdash/internal/version"

	promclient "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func setupTestProvider(t *testing.T) *Provider {
	t.Helper()
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	obs := models.ObservabilityConfig{
		ServiceName: "test",
		Tracing: models.TracingConfig{
			Enabled:    true,
			Exporter:   "stdout",
			SampleRate: 1.0,
		},
	}
	provider, err := Setup(metrics, obs, version.Info{Version: "1.0.0"})
	require.NoError(t, err)
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	return provider
}

// findFamily returns the first gathered family whose name starts with prefix.
// Exporter suffixes such as _total and _seconds are appended after the prefix.
func findFamily(t *testing.T, g promclient.Gatherer, prefix string) *dto.MetricFamily {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), prefix) {
			return mf
		}
	}
	return nil
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := want[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}

func counterValue(t *testing.T, g promclient.Gatherer, prefix string, labels map[string]string) float64 {
	t.Helper()
	mf := findFamily(t, g, prefix)
	require.NotNil(t, mf, "metric family %s not gathered", prefix)
	var total float64
	for _, m := range mf.GetMetric() {
		if hasLabels(m, labels) {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func histogramCount(t *testing.T, g promclient.Gatherer, prefix string, labels map[string]string) uint64 {
	t.Helper()
	mf := findFamily(t, g, prefix)
	require.NotNil(t, mf, "metric family %s not gathered", prefix)
	var total uint64
	for _, m := range mf.GetMetric() {
		if hasLabels(m, labels) {
			total += m.GetHistogram().GetSampleCount()
		}
	}
	return total
}

func gaugeValue(t *testing.T, g promclient.Gatherer, prefix string, labels map[string]string) float64 {
	t.Helper()
	mf := findFamily(t, g, prefix)
	require.NotNil(t, mf, "metric family %s not gathered", prefix)
	for _, m := range mf.GetMetric() {
		if hasLabels(m, labels) {
			return m.GetGauge().GetValue()
		}
	}
	return 0
}
