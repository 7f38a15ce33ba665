// Command viewsync serves documents to remote WebSocket peers and runs
// engine scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/viewsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
