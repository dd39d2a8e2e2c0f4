package fabrikobserve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-dev/fabrik/pkg/adapter"
	"github.com/fabrik-dev/fabrik/pkg/gateway"
)

type stubProvider struct {
	name string
	err  error
}

func (p *stubProvider) Name() string { return p.name }
func (p *stubProvider) Generate(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if p.err != nil {
		return gateway.Response{}, p.err
	}
	return gateway.Response{Text: "ok"}, nil
}

func TestInstrumentedProvider_RecordsSuccessMetrics(t *testing.T) {
	m := NewMetrics()
	p := &InstrumentedProvider{Provider: &stubProvider{name: "stub"}, Metrics: m}

	resp, err := p.Generate(context.Background(), gateway.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)

	families, _ := m.Registry().Gather()
	var calls float64
	for _, f := range families {
		if f.GetName() == "fabrik_gateway_calls_total" {
			calls += f.Metric[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), calls)
}

func TestInstrumentedProvider_RecordsErrorMetrics(t *testing.T) {
	m := NewMetrics()
	p := &InstrumentedProvider{Provider: &stubProvider{name: "stub", err: errors.New("boom")}, Metrics: m}

	_, err := p.Generate(context.Background(), gateway.Request{})
	assert.Error(t, err)

	families, _ := m.Registry().Gather()
	var errs float64
	for _, f := range families {
		if f.GetName() == "fabrik_gateway_errors_total" {
			errs = f.Metric[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), errs)
}

type stubAdapter struct{ err error }

func (a *stubAdapter) Send(ctx context.Context, message string, sendCtx adapter.SendContext) (adapter.AgentResponse, error) {
	if a.err != nil {
		return adapter.AgentResponse{}, a.err
	}
	return adapter.AgentResponse{Text: "hi"}, nil
}
func (a *stubAdapter) Reset(ctx context.Context) error { return nil }
func (a *stubAdapter) Close() error                    { return nil }

func TestInstrumentedAdapter_RecordsCallMetrics(t *testing.T) {
	m := NewMetrics()
	a := &InstrumentedAdapter{Adapter: &stubAdapter{}, Kind: "http", Metrics: m}

	resp, err := a.Send(context.Background(), "hi", adapter.SendContext{})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text)

	families, _ := m.Registry().Gather()
	var calls float64
	for _, f := range families {
		if f.GetName() == "fabrik_adapter_sends_total" {
			calls = f.Metric[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), calls)
}

func TestRecordScenario_RecordsPassAndFail(t *testing.T) {
	m := NewMetrics()

	err := RecordScenario(context.Background(), nil, m, "greets-politely", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	err = RecordScenario(context.Background(), nil, m, "handles-refund", func(ctx context.Context) error {
		return errors.New("failed")
	})
	assert.Error(t, err)

	families, _ := m.Registry().Gather()
	var total float64
	for _, f := range families {
		if f.GetName() == "fabrik_runner_scenarios_total" {
			for _, mm := range f.Metric {
				total += mm.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), total)
}
