package exporters

import (
	"context"
	"fmt"
	"time"

	"salesdesk/pkg/config"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
)

func ProvideHttp(ctx context.Context, cfg *config.Config) (*otlptrace.Exporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithCompression(otlptracehttp.GzipCompression)}
	if cfg.Otel.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Otel.Endpoint))
	}
	if cfg.Otel.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
}

// New picks the OTLP transport named by OTEL_EXPORTER.
func New(cfg *config.Config) (*otlptrace.Exporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Otel.Exporter {
	case "grpc", "":
		return ProvideGrpc(ctx, cfg)
	case "http":
		return ProvideHttp(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported otel exporter %q", cfg.Otel.Exporter)
	}
}
