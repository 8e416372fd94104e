package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
)

type importersCmd struct{}

func (*importersCmd) Name() string     { return "importers" }
func (*importersCmd) Synopsis() string { return "list the configured importers" }
func (*importersCmd) Usage() string {
	return `bex importers

  Lists the importers declared in the configuration file with the file
  pattern each one responds to.
`
}

func (c *importersCmd) SetFlags(f *flag.FlagSet) {}

func (c *importersCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	importers, err := LoadImporters()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	var b strings.Builder
	b.WriteString("# Importers\n\n| Name | Account | File pattern |\n|---|---|---|\n")
	for _, imp := range importers {
		pattern := ""
		if p, ok := imp.(interface{ Pattern() string }); ok {
			pattern = p.Pattern()
		}
		fmt.Fprintf(&b, "| %s | %s | `%s` |\n", imp.Name(), imp.Account(), pattern)
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
