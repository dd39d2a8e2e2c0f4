package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fabrik-dev/fabrik/pkg/profile"
	"github.com/fabrik-dev/fabrik/pkg/runner"
	"github.com/fabrik-dev/fabrik/pkg/scenario"
	"github.com/fabrik-dev/fabrik/pkg/tracestore"
)

// RunCmd loads the scenario registry and runs it against the configured
// adapter, persisting the results as one version-labelled trace-store run.
type RunCmd struct {
	Version string `help:"Label this run for later diffing." default:"dev"`
}

func (rc *RunCmd) Run(cli *CLI) error {
	ctx := context.Background()

	pl, err := buildPipeline(cli.Config)
	if err != nil {
		return err
	}

	registry, err := scenario.Load(pl.cfg.Run.ScenarioDir, scenario.TagFilter(pl.cfg.Run.Tag))
	if err != nil {
		return fmt.Errorf("fabrik: load scenarios: %w", err)
	}
	scenarios := registry.All()
	if len(scenarios) == 0 {
		return fmt.Errorf("fabrik: no scenarios found under %q", pl.cfg.Run.ScenarioDir)
	}

	var prof *profile.AgentProfile
	if root := pl.cfg.Discovery.RootDir; root != "" {
		if p, _, err := profile.Load(root); err == nil {
			prof = p
		}
	}

	run := runner.New(runner.Options{
		NewAdapter:  pl.buildAdapter,
		Gateway:     pl.gw,
		Profile:     prof,
		Timeout:     pl.cfg.Run.Timeout,
		Retries:     pl.cfg.Run.Retries,
		Parallelism: pl.cfg.Run.Parallelism,
	})

	results, err := run.Run(ctx, scenarios)
	if err != nil {
		return fmt.Errorf("fabrik: run scenarios: %w", err)
	}

	store, err := tracestore.Open(pl.cfg.Trace.DBPath)
	if err != nil {
		return fmt.Errorf("fabrik: open trace store: %w", err)
	}
	defer store.Close()

	createdAt := time.Now().UTC()
	meta := tracestore.BuildMeta(uuid.NewString(), rc.Version, createdAt, results)
	if err := store.SaveRun(ctx, tracestore.StoredRun{Meta: meta, Results: results}); err != nil {
		return fmt.Errorf("fabrik: save run: %w", err)
	}

	fmt.Printf("fabrik: %s — %d/%d scenarios passed (saved as %s)\n",
		rc.Version, meta.Counts.Passed, meta.Counts.Total, meta.ID)
	return nil
}
