package fabrikobserve

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fabrik-dev/fabrik/pkg/adapter"
	"github.com/fabrik-dev/fabrik/pkg/gateway"
)

// InstrumentedProvider decorates a gateway.Provider with a span and a
// metrics observation around every Generate call, without the provider
// itself needing to know fabrikobserve exists.
type InstrumentedProvider struct {
	gateway.Provider
	Tracer  trace.Tracer
	Metrics *Metrics
}

// Generate wraps the inner provider's Generate in a span named
// "fabrik.gateway.generate" and records gateway call metrics.
func (p *InstrumentedProvider) Generate(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	name := p.Provider.Name()
	start := time.Now()

	var span trace.Span
	if p.Tracer != nil {
		ctx, span = p.Tracer.Start(ctx, "fabrik.gateway.generate", trace.WithAttributes(
			attribute.String("gateway.provider", name),
		))
		defer span.End()
	}

	resp, err := p.Provider.Generate(ctx, req)

	if span != nil && err != nil {
		span.RecordError(err)
	}
	p.Metrics.RecordGatewayCall(name, time.Since(start), err)
	return resp, err
}

// InstrumentedAdapter decorates an adapter.Adapter with a span and a
// metrics observation around every Send call.
type InstrumentedAdapter struct {
	adapter.Adapter
	Kind    string
	Tracer  trace.Tracer
	Metrics *Metrics
}

// Send wraps the inner adapter's Send in a span named "fabrik.adapter.send"
// and records adapter call metrics.
func (a *InstrumentedAdapter) Send(ctx context.Context, message string, sendCtx adapter.SendContext) (adapter.AgentResponse, error) {
	start := time.Now()

	var span trace.Span
	if a.Tracer != nil {
		ctx, span = a.Tracer.Start(ctx, "fabrik.adapter.send", trace.WithAttributes(
			attribute.String("adapter.kind", a.Kind),
			attribute.String("adapter.conversation_id", sendCtx.ConversationID),
		))
		defer span.End()
	}

	resp, err := a.Adapter.Send(ctx, message, sendCtx)

	if span != nil && err != nil {
		span.RecordError(err)
	}
	a.Metrics.RecordAdapterSend(a.Kind, time.Since(start))
	return resp, err
}

// RecordScenario wraps a scenario execution in a span named
// "fabrik.runner.scenario" and records runner metrics. Callers invoke it
// around the scenario function itself:
//
//	err := fabrikobserve.RecordScenario(ctx, tracer, metrics, name, func(ctx context.Context) error {
//		return runScenarioFn(ctx, rc)
//	})
func RecordScenario(ctx context.Context, tracer trace.Tracer, metrics *Metrics, name string, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if tracer != nil {
		ctx, span = tracer.Start(ctx, "fabrik.runner.scenario", trace.WithAttributes(
			attribute.String("scenario.name", name),
		))
		defer span.End()
	}

	err := fn(ctx)

	passed := err == nil
	if span != nil {
		span.SetAttributes(attribute.Bool("scenario.passed", passed))
		if err != nil {
			span.RecordError(err)
		}
	}
	metrics.RecordScenarioRun(name, passed, time.Since(start))
	return err
}
