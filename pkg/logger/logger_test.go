package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"salesdesk/pkg/config"
)

func TestNewReplacesGlobals(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	cfg := &config.Config{AppEnv: "test", AppName: "salesdesk"}
	log, err := New(ConfigParams{Cfg: cfg})
	require.NoError(t, err)
	require.NotNil(t, log)
	require.Same(t, log, zap.L())
}

func TestFromContextWithoutSpan(t *testing.T) {
	require.Same(t, zap.L(), FromContext(context.Background()))
}

func TestFromContextWithSpan(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	require.NotSame(t, zap.L(), FromContext(ctx))
}
