package cli

import (
	"github.com/spf13/cobra"

	"github.com/canonica-labs/distframe/internal/optimizer"
)

func (c *CLI) newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <job-spec.json>",
		Short: "Show how a job spec's plan will optimize",
		Long: `Explain compiles a job spec into a logical plan and prints the rules
the optimizer applies, without dispatching any tasks.

Example:
  enginectl explain job.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplain(args[0])
		},
	}
}

func (c *CLI) runExplain(jobSpecPath string) error {
	spec, err := LoadJobSpec(jobSpecPath)
	if err != nil {
		return err
	}
	plan, err := spec.Compile()
	if err != nil {
		return err
	}

	explanation := optimizer.DefaultRunner().Explain(plan)

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"job_spec": jobSpecPath,
			"explain":  explanation,
		})
	}

	c.println("Plan Explanation")
	c.println("================")
	c.println("")
	c.println(explanation)
	return nil
}
