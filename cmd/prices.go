package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/beanport/beanport/ibkr"
	"github.com/google/subcommands"
)

type pricesCmd struct{}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "print statement-end security prices of a flex report" }
func (*pricesCmd) Usage() string {
	return `bex prices <flex.xml...>

  Reads broker flex reports and prints the mark price of every open position
  on the statement-end date.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {}

func (c *pricesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	var b strings.Builder
	b.WriteString("# Prices\n\n| Symbol | Price | Date |\n|---|---:|---|\n")
	for _, path := range f.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		report, err := ibkr.ParseFlex(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		for _, st := range report.FlexStatements {
			prices, warnings := ibkr.LatestPrices(st)
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
			}
			symbols := make([]string, 0, len(prices))
			for symbol := range prices {
				symbols = append(symbols, symbol)
			}
			sort.Strings(symbols)
			for _, symbol := range symbols {
				p := prices[symbol]
				fmt.Fprintf(&b, "| %s | %s | %s |\n", symbol, p.Value, p.Date)
			}
		}
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
