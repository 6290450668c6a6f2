// Package observability wires the optional OpenTelemetry exporter and the
// HTTP tracing middleware for the control plane, narrowed to the
// attributes this broker's control plane needs.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the tracing setup read from config.TracingConfig.
type Config struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRate  float64
}

type provider struct {
	tp      *sdktrace.TracerProvider
	tracer  trace.Tracer
	enabled bool
}

var global = &provider{enabled: false, tracer: trace.NewNoopTracerProvider().Tracer("")}

// Init sets up the global tracer provider. With cfg.Enabled false it installs
// a no-op tracer so every call site stays correct without a branch.
func Init(ctx context.Context, cfg Config) error {
	if !cfg.Enabled {
		global = &provider{enabled: false, tracer: trace.NewNoopTracerProvider().Tracer("")}
		return nil
	}

	res, err := resource.New(ctx, resource.WithAttributes())
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("create otlp exporter: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate < 1.0 && cfg.SampleRate >= 0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	global = &provider{tp: tp, tracer: tp.Tracer(cfg.ServiceName), enabled: true}
	return nil
}

// Shutdown drains the exporter, if one is installed.
func Shutdown(ctx context.Context) error {
	if global.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return global.tp.Shutdown(ctx)
}

// Tracer returns the active tracer (a no-op tracer when disabled).
func Tracer() trace.Tracer { return global.tracer }

// Enabled reports whether a real exporter is installed.
func Enabled() bool { return global.enabled }
