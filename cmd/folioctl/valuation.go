package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/google/subcommands"
)

type valuationCmd struct {
	user string
}

func (*valuationCmd) Name() string { return "valuation" }
func (*valuationCmd) Synopsis() string {
	return "print a user's holdings, totals and sector allocation"
}
func (*valuationCmd) Usage() string {
	return `folioctl valuation -user <id>

  Values the user's holdings at their stored prices. Run refresh first
  for up-to-date figures.
`
}

func (p *valuationCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.user, "user", "", "The user whose portfolio to value (required).")
}

func (p *valuationCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.user == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		return subcommands.ExitUsageError
	}

	container, _, err := wire(ctx)
	if err != nil {
		return fail(err)
	}
	defer container.Close()

	portfolio, err := container.HoldingsService.Portfolio(ctx, p.user)
	if err != nil {
		return fail(err)
	}
	if len(portfolio.Holdings) == 0 {
		fmt.Println("no holdings")
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SYMBOL\tQTY\tVALUE\tP&L\tP&L %\t")
	for _, h := range portfolio.Holdings {
		fmt.Fprintf(w, "%s\t%g\t%s\t%s\t%s\t\n",
			h.Symbol, h.Quantity,
			valuation.FormatAmount(h.Value),
			valuation.FormatAmount(h.PnL),
			valuation.FormatPercent(h.PnLPercent, 2))
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}

	fmt.Println()
	fmt.Printf("Invested: %s\n", valuation.FormatAmount(portfolio.TotalInvested))
	fmt.Printf("Value:    %s\n", valuation.FormatAmount(portfolio.TotalValue))
	fmt.Printf("P&L:      %s (%s)\n",
		valuation.FormatAmount(portfolio.TotalPnL),
		valuation.FormatPercent(portfolio.TotalPnLPercent, 2))

	fmt.Println()
	fmt.Println("Sectors:")
	for _, s := range portfolio.SectorAllocation {
		fmt.Printf("  %-20s %3d%%  %s\n", s.Name, s.Percent, valuation.FormatAmount(s.Value))
	}

	return subcommands.ExitSuccess
}
