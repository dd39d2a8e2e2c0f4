package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fabrik-dev/fabrik/pkg/fabrikconfig"
	"github.com/fabrik-dev/fabrik/pkg/tracestore"
)

// DiffCmd compares two persisted runs by version label and reports whether
// the newer one regressed against the older.
type DiffCmd struct {
	Before string `help:"Version label of the baseline run." required:""`
	After  string `help:"Version label of the run to compare against the baseline." required:""`
}

func (d *DiffCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := fabrikconfig.Load(fabrikconfig.LoaderOptions{Path: cli.Config})
	if err != nil {
		return fmt.Errorf("fabrik: load config: %w", err)
	}

	store, err := tracestore.Open(cfg.Trace.DBPath)
	if err != nil {
		return fmt.Errorf("fabrik: open trace store: %w", err)
	}
	defer store.Close()

	before, err := store.LoadByVersion(ctx, d.Before)
	if err != nil {
		return fmt.Errorf("fabrik: load %s: %w", d.Before, err)
	}
	if before == nil {
		return fmt.Errorf("fabrik: no run found for version %q", d.Before)
	}

	after, err := store.LoadByVersion(ctx, d.After)
	if err != nil {
		return fmt.Errorf("fabrik: load %s: %w", d.After, err)
	}
	if after == nil {
		return fmt.Errorf("fabrik: no run found for version %q", d.After)
	}

	result := tracestore.Compare(before, after, cfg.Trace.RegressionThreshold)

	fmt.Printf("fabrik: %s -> %s — added=%d removed=%d regressions=%d improvements=%d stable=%d modified=%d\n",
		d.Before, d.After,
		result.Summary.Added, result.Summary.Removed, result.Summary.Regressions,
		result.Summary.Improvements, result.Summary.Stable, result.Summary.Modified)

	if result.Summary.HasRegressions {
		os.Exit(1)
	}
	return nil
}
