package main

import (
	"fmt"

	"github.com/fabrik-dev/fabrik/pkg/adapter"
	"github.com/fabrik-dev/fabrik/pkg/fabrikconfig"
	"github.com/fabrik-dev/fabrik/pkg/fabrikobserve"
	"github.com/fabrik-dev/fabrik/pkg/gateway"
)

// pipeline bundles the constructed collaborators a command needs. It
// contains no business logic of its own — every command calls straight
// into pkg/discovery, pkg/generator, pkg/runner, or pkg/tracestore.
type pipeline struct {
	cfg     *fabrikconfig.Config
	gw      *gateway.Gateway
	metrics *fabrikobserve.Metrics
}

func buildPipeline(configPath string) (*pipeline, error) {
	cfg, err := fabrikconfig.Load(fabrikconfig.LoaderOptions{Path: configPath})
	if err != nil {
		return nil, fmt.Errorf("fabrik: load config: %w", err)
	}

	provider, err := cfg.Provider.BuildProvider()
	if err != nil {
		return nil, fmt.Errorf("fabrik: build gateway: %w", err)
	}

	metrics := fabrikobserve.NewMetrics()
	gw := gateway.New(&fabrikobserve.InstrumentedProvider{Provider: provider, Metrics: metrics})

	return &pipeline{cfg: cfg, gw: gw, metrics: metrics}, nil
}

func (pl *pipeline) buildAdapter() (adapter.Adapter, error) {
	a, err := adapter.New(pl.cfg.Adapter)
	if err != nil {
		return nil, fmt.Errorf("fabrik: build adapter: %w", err)
	}
	return &fabrikobserve.InstrumentedAdapter{
		Adapter: a,
		Kind:    string(pl.cfg.Adapter.Kind),
		Metrics: pl.metrics,
	}, nil
}
