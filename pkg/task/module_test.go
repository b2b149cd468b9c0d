package task

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestTracingMiddleware(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var inSpan bool
	h := Tracing(asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		inSpan = trace.SpanFromContext(ctx).SpanContext().IsValid()
		return errors.New("mongo down")
	}))

	err := h.ProcessTask(context.Background(), asynq.NewTask("audit:archive", nil))
	require.EqualError(t, err, "mongo down")
	require.True(t, inSpan)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "audit:archive", spans[0].Name)
	require.Equal(t, codes.Error, spans[0].Status.Code)
}
