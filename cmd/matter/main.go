// Command matter simulates, hosts and inspects Matter games.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/matter/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
