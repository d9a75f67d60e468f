package main

import (
	"github.com/alecthomas/kong"
	"github.com/arnavsurve/pagestep/cmd/cli"
)

var CLI struct {
	cli.Globals

	Run   cli.RunCmd   `cmd:"" help:"Execute a job document against the browser and wait for it."`
	Lint  cli.LintCmd  `cmd:"" help:"Check a job document without touching the browser."`
	Serve cli.ServeCmd `cmd:"" help:"Accept jobs over HTTP."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("pagestep"),
		kong.Description("Replays declarative UI action lists on a live web page."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
