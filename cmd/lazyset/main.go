// Command lazyset validates entity models, seeds databases and resolves
// membership of records in query-backed collections.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/lazyset/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
