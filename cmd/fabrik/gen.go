package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fabrik-dev/fabrik/pkg/discovery"
	"github.com/fabrik-dev/fabrik/pkg/fabriklog"
	"github.com/fabrik-dev/fabrik/pkg/generator"
	"github.com/fabrik-dev/fabrik/pkg/profile"
)

// GenCmd discovers the agent under test (reusing a fresh cached profile when
// one exists) and writes generated scenario files under the configured
// output directory. Wiring only — every decision lives in pkg/discovery and
// pkg/generator.
type GenCmd struct {
	Force bool `help:"Ignore any cached profile and re-run discovery."`
}

func (g *GenCmd) Run(cli *CLI) error {
	ctx := context.Background()
	logger := fabriklog.Default()

	pl, err := buildPipeline(cli.Config)
	if err != nil {
		return err
	}

	root := pl.cfg.Discovery.RootDir
	if root == "" {
		root = "."
	}

	prof, err := g.profile(ctx, pl, root)
	if err != nil {
		return err
	}

	plan, err := generator.Plan(ctx, pl.gw, prof, generator.PlanOptions{
		Count:      pl.cfg.Generate.Count,
		Categories: categoriesOf(pl.cfg.Generate.Categories),
	})
	if err != nil {
		return fmt.Errorf("fabrik: plan scenarios: %w", err)
	}

	outDir := pl.cfg.Generate.OutputDir
	if outDir == "" {
		outDir = "scenarios"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("fabrik: create %s: %w", outDir, err)
	}

	written := 0
	for _, spec := range plan.Scenarios {
		source, err := generator.Write(ctx, pl.gw, prof, spec)
		if err != nil {
			logger.Warn("fabrik: scenario write failed, skipping", "slug", spec.Slug, "error", err)
			continue
		}
		path := filepath.Join(outDir, spec.Slug+"_test.go")
		if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
			return fmt.Errorf("fabrik: write %s: %w", path, err)
		}
		written++
	}

	fmt.Printf("fabrik: generated %d/%d scenarios into %s\n", written, len(plan.Scenarios), outDir)
	return nil
}

// profile returns a fresh cached profile when one exists and -force was not
// given, otherwise runs discovery and persists the result.
func (g *GenCmd) profile(ctx context.Context, pl *pipeline, root string) (*profile.AgentProfile, error) {
	logger := fabriklog.Default()

	if !g.Force {
		if p, stale, err := profile.Load(root); err == nil {
			if stale {
				logger.Warn("fabrik: cached profile is stale, consider --force", "root", root)
			}
			return p, nil
		}
	}

	source := profile.Source{
		Kind:  profile.SourceKind(pl.cfg.Discovery.SourceKind),
		Value: pl.cfg.Discovery.SourceValue,
	}

	if source.Kind == profile.SourceHTTPEndpoint {
		a, err := pl.buildAdapter()
		if err != nil {
			return nil, err
		}
		defer a.Close()
		return discovery.RunHTTP(ctx, a, root, source, pl.cfg.Discovery.DescriptionHint)
	}

	return discovery.RunCodebase(ctx, pl.gw, root, source, pl.cfg.Discovery.DescriptionHint)
}

func categoriesOf(names []string) []generator.Category {
	if len(names) == 0 {
		return nil
	}
	out := make([]generator.Category, len(names))
	for i, n := range names {
		out[i] = generator.Category(n)
	}
	return out
}
