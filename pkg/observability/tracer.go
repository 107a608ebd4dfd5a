// Package observability wires OpenTelemetry tracing for turn execution,
// remote API calls and tool dispatch.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span names used across the codebase.
const (
	SpanTurn         = "orchestrator.turn"
	SpanTurnStream   = "orchestrator.turn_stream"
	SpanIngest       = "docstore.ingest"
	SpanToolDispatch = "tool.dispatch"
)

type TracerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	EndpointURL  string  `yaml:"endpoint_url"`
	SamplingRate float64 `yaml:"sampling_rate"`
	ServiceName  string  `yaml:"service_name"`
}

func (c *TracerConfig) SetDefaults() {
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
	if c.ServiceName == "" {
		c.ServiceName = "curator"
	}
	if c.EndpointURL == "" {
		c.EndpointURL = "localhost:4317"
	}
}

// InitGlobalTracer installs the global tracer provider. With tracing
// disabled a noop provider is installed so instrumented code needs no
// branching.
func InitGlobalTracer(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewTracerProvider()
		otel.SetTracerProvider(provider)
		return provider, nil
	}

	cfg.SetDefaults()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.EndpointURL),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
