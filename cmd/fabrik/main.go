// Command fabrik is the CLI for the agent evaluation harness.
//
// Usage:
//
//	fabrik gen --config fabrik.yaml
//	fabrik run --config fabrik.yaml
//	fabrik diff --config fabrik.yaml --before v1.0.0 --after v1.1.0
package main

import (
	"github.com/alecthomas/kong"
)

// CLI is the struct-of-commands kong parses into.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Gen     GenCmd     `cmd:"" help:"Discover the agent under test and generate scenarios."`
	Run     RunCmd     `cmd:"" help:"Run scenarios against the agent under test."`
	Diff    DiffCmd    `cmd:"" help:"Compare two persisted runs by version."`

	Config string `short:"c" help:"Path to config file." type:"path" default:"fabrik.yaml"`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("fabrik"),
		kong.Description("Conversational agent evaluation harness"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
