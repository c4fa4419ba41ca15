// Package telemetry wires the OpenTelemetry SDK for frontdeskd.
//
// Metrics are exported through the Prometheus bridge and served by the
// dashboard's /metrics endpoint. Traces are exported over OTLP/gRPC
// when an endpoint is configured; without one, span creation stays a
// no-op through the global tracer.
package telemetry

import (
	"context"
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config configures telemetry initialization.
type Config struct {
	// ServiceName identifies this service in exported telemetry.
	ServiceName string

	// ServiceVersion is the build version attached to the resource.
	ServiceVersion string

	// TraceEndpoint is the OTLP/gRPC collector address (host:port).
	// Empty disables trace export.
	TraceEndpoint string

	// TraceInsecure disables TLS on the trace exporter connection.
	TraceInsecure bool

	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64

	// Registerer receives the Prometheus metrics. Defaults to the
	// process-wide registerer served by promhttp.
	Registerer prom.Registerer
}

// Provider holds the initialized SDK providers for shutdown.
type Provider struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// Init sets up the global meter and tracer providers.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "frontdeskd"
	}

	// Standalone resource to avoid schema URL conflicts with
	// resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	p := &Provider{}

	promOpts := []prometheus.Option{}
	if cfg.Registerer != nil {
		promOpts = append(promOpts, prometheus.WithRegisterer(cfg.Registerer))
	}
	metricReader, err := prometheus.New(promOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(metricReader),
	)
	otel.SetMeterProvider(p.meterProvider)

	if cfg.TraceEndpoint != "" {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.TraceEndpoint),
		}
		if cfg.TraceInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}

		var sampler sdktrace.Sampler
		switch {
		case cfg.SampleRate >= 1.0:
			sampler = sdktrace.AlwaysSample()
		case cfg.SampleRate <= 0:
			sampler = sdktrace.NeverSample()
		default:
			sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
		}

		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
		)
		otel.SetTracerProvider(p.tracerProvider)
	}

	return p, nil
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var firstErr error

	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("shutting down tracer provider: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutting down meter provider: %w", err)
		}
	}

	return firstErr
}
