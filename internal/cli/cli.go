// Package cli implements enginectl, the control interface for running
// DataFrame jobs, explaining how they'll optimize, and checking engine
// readiness — the same control-plane role the teacher's CLI played for
// SQL queries (exec/explain/validate against a gateway), rebuilt
// against this engine's own logical-plan API instead of SQL text and a
// remote gateway client.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/distframe/internal/config"
)

// Exit codes mirror internal/errors.ErrorCode so a shell script can
// branch on what kind of failure a run hit.
const (
	ExitSuccess   = 0
	ExitPlan      = 1
	ExitResource  = 2
	ExitExecution = 3
	ExitInternal  = 4
	ExitCancelled = 5
)

// CLI holds enginectl's command tree and global flag state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config

	configPath string
	jsonOutput bool
	quiet      bool
}

// New builds the enginectl command tree.
func New() *CLI {
	c := &CLI{}
	c.rootCmd = c.newRootCmd()
	return c
}

// Execute runs the CLI and returns the process exit code.
func (c *CLI) Execute() int {
	if err := c.rootCmd.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return ExitSuccess
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enginectl",
		Short: "enginectl - distributed DataFrame execution control",
		Long: `enginectl runs DataFrame jobs against the distributed execution engine.

It provides:
  • Job execution from a logical-plan job spec
  • Optimizer explain output without running anything
  • Worker pool and history store readiness checks`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.enginectl/config.yaml)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&c.quiet, "quiet", false, "suppress non-essential output")

	cmd.AddCommand(c.newRunCmd())
	cmd.AddCommand(c.newExplainCmd())
	cmd.AddCommand(c.newStatusCmd())
	cmd.AddCommand(c.newVersionCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *CLI) printf(format string, args ...interface{}) {
	if !c.quiet {
		fmt.Printf(format, args...)
	}
}

func (c *CLI) println(args ...interface{}) {
	if !c.quiet {
		fmt.Println(args...)
	}
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
