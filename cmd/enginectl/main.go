// Command enginectl is the control-plane CLI for the distributed
// DataFrame execution engine: run a job, explain its optimized plan, or
// check worker/history readiness.
package main

import (
	"os"

	"github.com/canonica-labs/distframe/internal/cli"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersionInfo(version, gitCommit, buildDate)
	os.Exit(cli.New().Execute())
}
