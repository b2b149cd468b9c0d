package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestTracing(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	var seen trace.SpanContext
	r := gin.New()
	r.Use(Tracing())
	r.GET("/v1/leads/:id", func(c *gin.Context) {
		seen = trace.SpanFromContext(c.Request.Context()).SpanContext()
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/leads/42", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, seen.IsValid())
	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", seen.TraceID().String())

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "GET /v1/leads/:id", spans[0].Name)
	require.Equal(t, codes.Error, spans[0].Status.Code)
}
