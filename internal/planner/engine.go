// Package planner exposes Engine, the library entry point that ties
// configuration, the rule-based optimizer, the physical plan factory,
// and the scheduler together into one Run/Explain call, the same role
// the teacher's planner package played for a SQL query (plan, pick an
// engine, execute) before this system's distributed-DataFrame rewrite.
package planner

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/canonica-labs/distframe/internal/config"
	"github.com/canonica-labs/distframe/internal/distworker"
	enginerrors "github.com/canonica-labs/distframe/internal/errors"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/observability"
	"github.com/canonica-labs/distframe/internal/optimizer"
	"github.com/canonica-labs/distframe/internal/partition"
	"github.com/canonica-labs/distframe/internal/physicalplan"
	"github.com/canonica-labs/distframe/internal/scheduler"
	"github.com/canonica-labs/distframe/internal/trace"
	"github.com/canonica-labs/distframe/internal/workerexec"
)

// Engine runs logical plans to completion against either an in-process
// worker pool or a distributed one, built once from a config.Config and
// reused across runs.
type Engine struct {
	cfg    *config.Config
	pool   scheduler.WorkerPool
	logger observability.EngineLogger
	db     *sql.DB

	closeFns []func() error
}

// NewEngine builds the worker pool and logging sink cfg describes. The
// returned Engine owns whatever it opens (a local DuckDB executor, a
// distributed pool's gRPC connections, a Postgres handle for history)
// and releases them on Close.
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, enginerrors.NewConfigInvalid("config", err.Error())
	}

	e := &Engine{cfg: cfg}

	pool, closeFn, err := buildPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	if closeFn != nil {
		e.closeFns = append(e.closeFns, closeFn)
	}

	logger, err := e.buildLogger(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.logger = logger

	return e, nil
}

func buildPool(ctx context.Context, cfg *config.Config) (scheduler.WorkerPool, func() error, error) {
	switch cfg.Runner {
	case "local":
		exec, err := workerexec.NewExecutor("")
		if err != nil {
			return nil, nil, fmt.Errorf("planner: failed to start local executor: %w", err)
		}
		return scheduler.NewLocalWorkerPool(exec), exec.Close, nil

	case "distributed":
		p, err := distworker.DialPool(ctx, cfg.Distributed)
		if err != nil {
			return nil, nil, fmt.Errorf("planner: failed to dial worker pool: %w", err)
		}
		return p, nil, nil

	default:
		return nil, nil, enginerrors.NewConfigInvalid("runner", fmt.Sprintf("unknown runner %q", cfg.Runner))
	}
}

func (e *Engine) buildLogger(ctx context.Context) (observability.EngineLogger, error) {
	if !e.cfg.History.Enabled {
		if e.cfg.Logging.Format == "json" {
			return observability.NewJSONLogger(os.Stdout), nil
		}
		return observability.NewNoopLogger(), nil
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		e.cfg.History.Host, e.cfg.History.Port, e.cfg.History.User,
		e.cfg.History.Password, e.cfg.History.Name, e.cfg.History.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("planner: failed to open history store: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("planner: history store unreachable: %w", err)
	}
	e.db = db
	e.closeFns = append(e.closeFns, db.Close)

	if err := observability.NewMigrationRunner(db).Run(ctx); err != nil {
		return nil, fmt.Errorf("planner: failed to migrate history store: %w", err)
	}

	var w io.Writer = io.Discard
	if e.cfg.Logging.Format == "json" {
		w = os.Stdout
	}
	return observability.NewPersistentLogger(db, w)
}

// Close releases every resource the engine opened: local executors,
// distributed gRPC connections, and the history store's database
// handle, in reverse order of acquisition.
func (e *Engine) Close() error {
	var firstErr error
	for i := len(e.closeFns) - 1; i >= 0; i-- {
		if err := e.closeFns[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run optimizes root, compiles it to a physical plan, and drives it to
// completion, returning the resolved output partitions.
func (e *Engine) Run(ctx context.Context, runID string, root logicalplan.Node) ([]partition.Partition, error) {
	plan, err := e.compile(root)
	if err != nil {
		return nil, err
	}

	tracer, finalizeTrace, err := e.buildTracer(runID)
	if err != nil {
		return nil, err
	}
	if finalizeTrace != nil {
		defer finalizeTrace()
	}

	sched := scheduler.New(e.pool, scheduler.EngineContext{
		RunID: runID,
		Config: scheduler.SchedulerConfig{
			CapCPU:         e.cfg.Resources.CapCPU,
			CapGPU:         e.cfg.Resources.CapGPU,
			CapMemoryBytes: e.cfg.Resources.CapMemoryBytes,
		},
		Logger: e.logger,
		Tracer: tracer,
	})

	handles, err := sched.Run(ctx, plan)
	if err != nil {
		return nil, err
	}

	outputs, ok := sched.Cache().Resolve(handles)
	if !ok {
		return nil, enginerrors.NewRunCancelled("run completed but final output partitions were evicted before being read back")
	}
	return outputs, nil
}

// Explain optimizes root and returns a human-readable description of
// the rules that fired, without executing anything.
func (e *Engine) Explain(root logicalplan.Node) string {
	return optimizer.DefaultRunner().Explain(root)
}

func (e *Engine) compile(root logicalplan.Node) (physicalplan.PhysicalPlan, error) {
	optimized := optimizer.DefaultRunner().Optimize(root)
	plan, err := physicalplan.NewPhysicalPlan(optimized)
	if err != nil {
		return nil, enginerrors.NewPlanCompileFailed(optimized.Kind(), err)
	}
	return plan, nil
}

func (e *Engine) buildTracer(runID string) (*trace.Writer, func(), error) {
	if !e.cfg.Trace.Enabled {
		return trace.NewWriter(nil), nil, nil
	}
	path := fmt.Sprintf("%s/%s.trace.json", e.cfg.Trace.Dir, runID)
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("planner: failed to create trace file %s: %w", path, err)
	}
	tw := trace.NewWriter(f)
	return tw, func() {
		tw.Finalize()
		f.Close()
	}, nil
}
