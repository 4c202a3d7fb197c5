// Package tracing provides OpenTelemetry tracing for OpenStreetMap API calls
package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// ServiceName is the name of the service in traces
	ServiceName = "osmapi"
	// TracerName is the instrumentation scope of every span
	TracerName = "github.com/NERVsystems/osmapi"
)

// Tracer is used by StartSpan. It is a no-op until InitTracing or
// UseTracerProvider installs a real provider.
var Tracer trace.Tracer = noop.NewTracerProvider().Tracer(TracerName)

// Config selects where spans are exported
type Config struct {
	// Endpoint is the OTLP gRPC collector address. Empty disables export.
	Endpoint string
	// Insecure disables TLS towards the collector
	Insecure bool
	// SampleRatio is the fraction of root spans kept, in (0, 1]
	SampleRatio float64
	// Environment is recorded as service.environment
	Environment string
}

// ConfigFromEnv reads OTLP_ENDPOINT, OTLP_INSECURE, OTLP_SAMPLE_RATIO and
// ENVIRONMENT
func ConfigFromEnv() Config {
	cfg := Config{
		Endpoint:    os.Getenv("OTLP_ENDPOINT"),
		Insecure:    os.Getenv("OTLP_INSECURE") != "false",
		SampleRatio: 1,
		Environment: os.Getenv("ENVIRONMENT"),
	}
	if ratio, err := strconv.ParseFloat(os.Getenv("OTLP_SAMPLE_RATIO"), 64); err == nil && ratio > 0 {
		cfg.SampleRatio = ratio
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	return cfg
}

// sampler keeps every span unless a ratio below one is configured
func (c Config) sampler() sdktrace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}

// InitTracing configures tracing from the environment
func InitTracing(ctx context.Context, version string) (shutdown func(context.Context) error, err error) {
	return Setup(ctx, ConfigFromEnv(), version)
}

// Setup installs an OTLP exporting tracer provider for cfg. Without an
// endpoint it installs the no-op tracer and returns a no-op shutdown.
func Setup(ctx context.Context, cfg Config, version string) (shutdown func(context.Context) error, err error) {
	if cfg.Endpoint == "" {
		UseTracerProvider(nil)
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
			attribute.String("service.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	UseTracerProvider(tp)

	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	}, nil
}

// UseTracerProvider points Tracer at tp. Passing nil restores the no-op tracer.
func UseTracerProvider(tp trace.TracerProvider) {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	Tracer = tp.Tracer(TracerName)
}

// StartSpan starts a span on Tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer.Start(ctx, name, opts...)
}

// AddEvent adds an event to the recording span in ctx, if any
func AddEvent(ctx context.Context, name string, opts ...trace.EventOption) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, opts...)
	}
}

// SetAttributes sets attributes on the recording span in ctx, if any
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}
