package cli

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/canonica-labs/distframe/internal/planner"
)

func (c *CLI) newRunCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run <job-spec.json>",
		Short: "Run a DataFrame job to completion",
		Long: `Run compiles a job spec into a logical plan, optimizes it, and drives
it to completion against the configured worker pool.

Example:
  enginectl run job.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(args[0], timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "maximum run duration")
	return cmd
}

func (c *CLI) runRun(jobSpecPath string, timeout time.Duration) error {
	spec, err := LoadJobSpec(jobSpecPath)
	if err != nil {
		return err
	}
	plan, err := spec.Compile()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	engine, err := planner.NewEngine(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	runID := uuid.NewString()
	outputs, err := engine.Run(ctx, runID, plan)
	if err != nil {
		if c.jsonOutput {
			c.outputJSON(map[string]interface{}{"run_id": runID, "success": false, "error": err.Error()})
		} else {
			c.errorf("Run %s failed: %v\n", runID, err)
		}
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"run_id":          runID,
			"success":         true,
			"output_partitions": len(outputs),
		})
	}

	c.printf("Run %s completed\n", runID)
	c.printf("Output partitions: %d\n", len(outputs))
	return nil
}
