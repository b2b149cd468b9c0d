package otelcol

import (
	"context"
	"testing"

	"salesdesk/pkg/config"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProvideTraceExportsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := ProvideTrace(exp, sdktrace.WithSyncer(exp))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "lead.update")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.NotEmpty(t, spans)
	require.Equal(t, "lead.update", spans[0].Name)
}

func TestResourceCarriesServiceName(t *testing.T) {
	cfg := &config.Config{AppName: "salesdesk", AppEnv: "test"}

	var found bool
	for _, kv := range Resource(cfg).Attributes() {
		if kv.Key == "service.name" {
			found = true
			require.Equal(t, "salesdesk", kv.Value.AsString())
		}
	}
	require.True(t, found)
}
