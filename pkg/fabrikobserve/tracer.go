// Package fabrikobserve wraps the evaluation pipeline's three hot paths —
// gateway.Generate, adapter.Send, and scenario execution — in OpenTelemetry
// spans, and exposes the same measurements as Prometheus counters and
// histograms, the way the teacher's pkg/observability instruments agent
// and LLM calls.
package fabrikobserve

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerConfig controls InitTracer. Exporter is left to the caller: when
// nil, spans are recorded in-process but never exported, which is enough
// to exercise the instrumentation without requiring a collector endpoint.
type TracerConfig struct {
	Enabled      bool
	ServiceName  string
	SamplingRate float64
	Exporter     sdktrace.SpanExporter
}

// InitTracer builds and installs the global TracerProvider described by
// cfg, returning it so the caller can Shutdown it on exit.
func InitTracer(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider(), nil
	}

	if cfg.SamplingRate <= 0 {
		cfg.SamplingRate = 1.0
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "fabrik"
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("fabrikobserve: build resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithResource(res),
	}
	if cfg.Exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(cfg.Exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns the named tracer from the currently installed
// TracerProvider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a span named name under tracer, recording err (if
// non-nil) as the span's terminal status. Callers defer the returned func
// after the operation completes:
//
//	ctx, end := fabrikobserve.StartSpan(ctx, fabrikobserve.Tracer("fabrik/gateway"), "Generate")
//	defer func() { end(err) }()
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
