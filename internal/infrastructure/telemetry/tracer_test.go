package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{name: "always", ratio: 1.0, want: sdktrace.AlwaysSample().Description()},
		{name: "above one", ratio: 3, want: sdktrace.AlwaysSample().Description()},
		{name: "never", ratio: 0, want: sdktrace.NeverSample().Description()},
		{name: "ratio", ratio: 0.25, want: sdktrace.TraceIDRatioBased(0.25).Description()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, samplerFor(tt.ratio).Description())
		})
	}
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	// The gRPC exporter connects lazily, so no collector is needed here.
	tp, err := NewTracerProvider(context.Background(), TracingConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     0.5,
		ServiceName:       "storefront-cart-test",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, tp.IsEnabled())
	assert.Same(t, tp.provider, otel.GetTracerProvider())
	assert.NoError(t, tp.Shutdown(context.Background()))
}
