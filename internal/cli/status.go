package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/canonica-labs/distframe/internal/capabilities"
	"github.com/canonica-labs/distframe/internal/router"
	"github.com/canonica-labs/distframe/internal/status"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check worker pool and history store readiness",
		Long: `Status reports whether the configured worker pool has an eligible
worker and, if a history store is configured, whether it's reachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus()
		},
	}
}

func (c *CLI) runStatus() error {
	checker := &status.EngineStatusChecker{
		RequiredCaps:  capabilities.NewSet(capabilities.CapabilityCPU),
		ConfigVersion: c.cfg.Runner,
	}

	if c.cfg.Runner == "distributed" {
		reg := router.NewWorkerRegistry()
		for _, addr := range c.cfg.Distributed.WorkerAddrs {
			reg.Register(&router.Worker{Addr: addr, Capabilities: capabilities.NewSet(capabilities.CapabilityCPU), Available: true})
		}
		checker.Registry = reg
	}

	if c.cfg.History.Enabled {
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.cfg.History.Host, c.cfg.History.Port, c.cfg.History.User,
			c.cfg.History.Password, c.cfg.History.Name, c.cfg.History.SSLMode)
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			checker.HistoryDB = db
			defer db.Close()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := checker.GetStatus(ctx)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(result)
	}

	c.println("Engine Status")
	c.println("=============")
	c.printf("Ready:          %v\n", result.Ready)
	if result.Reason != "" {
		c.printf("Reason:         %s\n", result.Reason)
	}
	c.printf("Runner:         %s\n", c.cfg.Runner)
	c.printf("Workers ready:  %v (%d registered)\n", result.WorkersReady, result.WorkerCount)
	c.printf("History store:  %s\n", result.HistoryHealth)

	if !result.Ready {
		return fmt.Errorf("engine not ready: %s", result.Reason)
	}
	return nil
}
