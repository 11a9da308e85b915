// Command barrage generates fixed-rate traffic against HTTP endpoints and
// message brokers.
package main

import (
	"fmt"
	"os"

	"barrage/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
