package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/modules/reconciliation"
	"github.com/google/subcommands"
)

type refreshCmd struct {
	user string
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "reconcile stored holding prices with the market" }
func (*refreshCmd) Usage() string {
	return `folioctl refresh [-user <id>]

  Runs one price reconciliation, for every user or just one, and prints
  the report: symbols fetched, holdings updated and any failures.
`
}

func (p *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.user, "user", "", "Limit the refresh to one user's holdings.")
}

func (p *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, jobs, err := wire(ctx)
	if err != nil {
		return fail(err)
	}
	defer container.Close()

	report, err := jobs.Reconciliation.Reconcile(ctx, reconciliation.Scope{
		UserID:  p.user,
		Trigger: reconciliation.TriggerCLI,
	})
	if err != nil {
		return fail(err)
	}

	fmt.Printf("holdings loaded:   %d\n", report.HoldingsLoaded)
	fmt.Printf("symbols processed: %d\n", report.SymbolsProcessed)
	fmt.Printf("prices fetched:    %d\n", report.PricesFetched)
	fmt.Printf("holdings updated:  %d\n", report.HoldingsUpdated)
	fmt.Printf("took:              %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	for _, f := range report.Failures {
		fmt.Printf("failed: %s (%s): %s\n", f.Symbol, f.HoldingID, f.Error)
	}

	if len(report.Failures) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
