package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "govdata-test", config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetupUnsupportedProtocol(t *testing.T) {
	_, err := Setup(context.Background(), "govdata-test", config{
		Traces: signalConfig{Protocol: "carrier-pigeon", Endpoint: "http://localhost:4318"},
	})
	require.ErrorContains(t, err, "unsupported otlp protocol")
}

func TestConfigDefaults(t *testing.T) {
	c := config{}
	require.Equal(t, trace.AlwaysSample().Description(), c.sampler().Description())
	require.Equal(t, "5s", c.metricInterval().String())

	ratio := 0.25
	c = config{SampleRatio: &ratio, MetricIntervalSeconds: 30}
	require.Contains(t, c.sampler().Description(), "TraceIDRatioBased{0.25}")
	require.Equal(t, "30s", c.metricInterval().String())
}

func TestNewResourceEnvironment(t *testing.T) {
	r, err := newResource("govdata", "staging")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range r.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "govdata", attrs["service.name"])
	require.Equal(t, "staging", attrs["deployment.environment"])
}
