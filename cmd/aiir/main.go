// Command aiir builds, validates and serves AIIR containers.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/aiir/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "aiir: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
