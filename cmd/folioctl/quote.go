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

type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "fetch current prices for one or more symbols" }
func (*quoteCmd) Usage() string {
	return `folioctl quote <symbol> [<symbol>...]

  Fetches quotes through the cache and the market data provider and prints
  one line per symbol. Symbols without an exchange suffix get the configured one.
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one symbol is required")
		return subcommands.ExitUsageError
	}

	container, _, err := wire(ctx)
	if err != nil {
		return fail(err)
	}
	defer container.Close()

	results := container.PriceFetcher.FetchQuotes(ctx, f.Args())

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tPRICE\tCHANGE\tSTATUS")
	unavailable := 0
	for _, r := range results {
		if !r.Available() {
			unavailable++
			fmt.Fprintf(w, "%s\t-\t-\t%s: %s\n", r.Symbol, r.Reason, r.Detail)
			continue
		}
		change := "-"
		if r.Quote.ChangePercent != nil {
			change = valuation.FormatPercent(*r.Quote.ChangePercent, 2)
		}
		status := "live"
		if r.Cached {
			status = "cached"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Symbol, valuation.FormatAmount(r.Quote.Price), change, status)
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}

	if unavailable == len(results) {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
