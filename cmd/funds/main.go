// Command funds manages the ledger from the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"funds/internal/backend"
	"funds/internal/cli"
	"funds/internal/log"
	"funds/internal/services"
)

var verbose = flag.Bool("v", false, "log at debug level")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	app := &cli.App{Out: os.Stdout, Err: os.Stderr, In: os.Stdin}
	cli.Register(commander, app)

	flag.Parse()

	// Logs go to stderr so command output stays pipeable.
	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := cli.SetupLogger(log.ComponentCLI, level, os.Stderr)

	// Configuration is only loaded by commands that touch the ledger.
	app.Open = func(ctx context.Context) (*services.LedgerService, error) {
		cli.LoadEnvFile()
		cfg := cli.LoadAndValidateConfig(logger)
		app.Currency = cfg.Currency

		backendConfig, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, err
		}
		result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendConfig)
		if err != nil {
			return nil, err
		}
		return result.Service, nil
	}

	os.Exit(int(commander.Execute(context.Background())))
}
