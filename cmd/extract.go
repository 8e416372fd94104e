package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beanport/beanport"
	"github.com/google/subcommands"
)

type extractCmd struct {
	ledgerFile string
	outputFile string
}

func (*extractCmd) Name() string     { return "extract" }
func (*extractCmd) Synopsis() string { return "convert institution export files into ledger records" }
func (*extractCmd) Usage() string {
	return `bex extract [-l <ledger.beancount>] [-o <output>] <files...>

  Routes each file through the first configured importer that recognizes its
  name and prints the resulting ledger records. Warnings go to stderr.
  With -l, cost basis of already recorded lots is read from the ledger file
  and used to resolve corporate actions.

Usage Examples:
# Convert this quarter's exports, checking costs against the main ledger.
$ bex extract -l main.beancount ibkr-2025-q1.xml yuh_statement.csv

`
}

func (c *extractCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerFile, "l", "", "Ledger file supplying the cost basis of existing lots")
	f.StringVar(&c.outputFile, "o", "", "Write records to this file instead of stdout")
}

func (c *extractCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	importers, err := LoadImporters()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(importers) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no importers configured in %s\n", *configFile)
		return subcommands.ExitFailure
	}

	var existing *beanport.Holdings
	if c.ledgerFile != "" {
		existing, err = readLedger(c.ledgerFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	var total beanport.Result
	var summary strings.Builder
	summary.WriteString("# Extraction\n\n| File | Importer | Records | Warnings |\n|---|---|---:|---:|\n")
	status := subcommands.ExitSuccess
	for _, path := range f.Args() {
		imp := identify(importers, path)
		if imp == nil {
			fmt.Fprintf(os.Stderr, "Warning: no importer recognizes %q, skipped\n", path)
			fmt.Fprintf(&summary, "| %s | - | 0 | 0 |\n", filepath.Base(path))
			status = subcommands.ExitFailure
			continue
		}
		res := imp.Extract(path, existing)
		fmt.Fprintf(&summary, "| %s | %s | %d | %d |\n", filepath.Base(path), imp.Name(), len(res.Records), len(res.Warnings))
		total.Merge(res)
	}
	beanport.SortRecords(total.Records)

	for _, w := range total.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	out := os.Stdout
	if c.outputFile != "" {
		file, err := os.Create(c.outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		out = file
	}
	if err := beanport.EncodeRecords(out, total.Records); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing records: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.outputFile != "" {
		printMarkdown(summary.String())
	}
	return status
}

// identify returns the first importer recognizing the file name.
func identify(importers []beanport.Importer, path string) beanport.Importer {
	name := filepath.Base(path)
	for _, imp := range importers {
		if imp.Identify(name) {
			return imp
		}
	}
	return nil
}

func readLedger(path string) (*beanport.Holdings, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer file.Close()
	holdings, err := beanport.ReadHoldings(file)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %q: %w", path, err)
	}
	return holdings, nil
}
