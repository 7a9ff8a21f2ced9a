package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/di"
	"github.com/aristath/folio/pkg/logger"
	"github.com/google/subcommands"
)

// Commands lists every folioctl subcommand
var Commands = []subcommands.Command{
	&quoteCmd{},
	&refreshCmd{},
	&valuationCmd{},
}

var (
	configFile = flag.String("config", config.DefaultConfigFile, "path to a TOML config file")
	verbose    = flag.Bool("v", false, "log at debug level to stderr")
)

// wire loads configuration and builds the dependency container for one command
func wire(ctx context.Context) (*di.Container, *di.JobInstances, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: os.Stderr,
	})

	return di.Wire(ctx, cfg, log)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}
