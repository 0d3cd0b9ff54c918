// Command wtas plays timed-input scripts and serves the remote control
// protocol.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/wtas/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
