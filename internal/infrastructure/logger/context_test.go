package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("returns attached logger", func(t *testing.T) {
		l := zap.NewExample()
		ctx := WithContext(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("returns no-op logger when missing", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})
}

func TestSessionID(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess-1")
	assert.Equal(t, "sess-1", GetSessionID(ctx))
	assert.Empty(t, GetSessionID(context.Background()))
}

func TestL(t *testing.T) {
	t.Run("uses base logger and adds session id", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		base := zap.New(core)

		ctx := WithSessionID(context.Background(), "sess-42")
		L(ctx, base).Info("hello")

		require.Equal(t, 1, logs.Len())
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, "sess-42", fields["session_id"])
		assert.NotContains(t, fields, "trace_id")
	})

	t.Run("prefers context logger", func(t *testing.T) {
		baseCore, baseLogs := observer.New(zapcore.DebugLevel)
		ctxCore, ctxLogs := observer.New(zapcore.DebugLevel)

		ctx := WithContext(context.Background(), zap.New(ctxCore))
		L(ctx, zap.New(baseCore)).Info("hello")

		assert.Equal(t, 0, baseLogs.Len())
		assert.Equal(t, 1, ctxLogs.Len())
	})

	t.Run("adds trace fields from span context", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		require.NoError(t, err)
		spanID, err := trace.SpanIDFromHex("0102030405060708")
		require.NoError(t, err)
		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

		L(ctx, zap.New(core)).Warn("traced")

		require.Equal(t, 1, logs.Len())
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, spanID.String(), fields["span_id"])
	})

	t.Run("nil base falls back to no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			L(context.Background(), nil).Info("dropped")
		})
	})
}
