package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bessim/core/factory"
	coremetrics "github.com/kilianp07/bessim/core/metrics"
)

func TestBuiltinSinksRegistered(t *testing.T) {
	sink, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, sink)

	multi, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "prometheus"}})
	require.NoError(t, err)
	m, ok := multi.(*coremetrics.MultiSink)
	require.True(t, ok)
	assert.Len(t, m.Sinks, 2)
}

func TestUnknownSink(t *testing.T) {
	_, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "statsd"}})
	assert.ErrorIs(t, err, factory.ErrUnknownModule)
}

func TestMQTTSinkRequiresBroker(t *testing.T) {
	_, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "mqtt", Conf: map[string]any{"client_id": "x"}}})
	assert.ErrorContains(t, err, "broker")
}
