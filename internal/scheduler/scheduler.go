// Package scheduler runs a physical plan to completion: it pulls tasks
// out of the plan's generator tree, admits them against resource caps,
// dispatches them to a worker pool, and feeds completions back into the
// plan until the plan's final output handles are resolved. Grounded on
// daft.runners.dynamic_runner.DynamicRunner.run's pull/dispatch/await
// loop, widened with the admission control and dynamic wait timeout
// daft's Ray-backed runner performs in its scheduling layer.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	enginerrors "github.com/canonica-labs/distframe/internal/errors"
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/observability"
	"github.com/canonica-labs/distframe/internal/physicalplan"
	"github.com/canonica-labs/distframe/internal/task"
	"github.com/canonica-labs/distframe/internal/trace"
)

const (
	minWait = 10 * time.Millisecond
	maxWait = 1 * time.Second
	// pullBatchLimit bounds how many tasks one wave's pull phase pulls
	// out of the plan before moving on to dispatch, standing in for
	// spec's "in-flight cap reached" pull-phase stop condition.
	pullBatchLimit = 64
)

// EngineContext bundles the per-run collaborators a Scheduler needs,
// mirroring the teacher's practice of threading one context struct
// through a run instead of a long parameter list.
type EngineContext struct {
	RunID  string
	Config SchedulerConfig
	Logger observability.EngineLogger
	Tracer *trace.Writer
}

// SchedulerConfig is the subset of internal/config.Config the scheduler
// consumes; kept decoupled from internal/config so tests can construct
// one without pulling in viper.
type SchedulerConfig struct {
	CapCPU         float64
	CapGPU         float64
	CapMemoryBytes int64
}

type inflightEntry struct {
	task   *task.PartitionTask
	future Future
	wave   int
	start  time.Time
}

// Scheduler owns the partition cache, admission controller and worker
// pool for one run.
type Scheduler struct {
	pool      WorkerPool
	admission *AdmissionController
	cache     *PartitionCache
	ectx      EngineContext
}

// New builds a scheduler that dispatches through pool, admitting at
// most ectx.Config's resource caps.
func New(pool WorkerPool, ectx EngineContext) *Scheduler {
	if ectx.Logger == nil {
		ectx.Logger = observability.NewNoopLogger()
	}
	if ectx.Tracer == nil {
		ectx.Tracer = trace.NewWriter(nil)
	}
	return &Scheduler{
		pool:      pool,
		admission: NewAdmissionController(ectx.Config.CapCPU, ectx.Config.CapGPU, ectx.Config.CapMemoryBytes),
		cache:     NewPartitionCache(),
		ectx:      ectx,
	}
}

// Cache exposes the scheduler's partition cache so a caller can read
// back the final result partitions after Run returns.
func (s *Scheduler) Cache() *PartitionCache { return s.cache }

// Run drives plan to completion and returns its final output handles.
// On any task failure or plan error, every in-flight task is cancelled
// and the first error is returned (§7: first error wins).
func (s *Scheduler) Run(ctx context.Context, plan physicalplan.PhysicalPlan) ([]handle.PartitionHandle, error) {
	queued := []*task.PartitionTask{}
	inFlight := map[uuid.UUID]*inflightEntry{}

	var finalHandles []handle.PartitionHandle
	planExhausted := false
	wave := 0
	wait := minWait
	limiter := rate.NewLimiter(rate.Every(minWait), 1)

	cancelAll := func() {
		for _, e := range inFlight {
			s.pool.Cancel(e.future)
			s.admission.Release(e.task.Resource)
		}
	}

	for {
		wave++
		waveStart := time.Now()
		var pulled, dispatched, completed, failed, admitRejects int
		var loopErr error
		var taskFailErr error
		var taskFailID, taskFailNode string

		s.ectx.Tracer.DispatchWave(wave, func() {
			// Pull phase.
			if !planExhausted {
				for pulled < pullBatchLimit {
					item, err := plan.Poll()
					if err != nil {
						cancelAll()
						loopErr = fmt.Errorf("scheduler: plan poll failed: %w", err)
						return
					}
					switch item.Kind {
					case physicalplan.ItemDone:
						finalHandles = append(finalHandles, item.Results...)
						planExhausted = true
					case physicalplan.ItemOpenTask:
						// An open task at the root is one of the plan's
						// final output partitions.
						t := item.Builder.FinalizeSingleOutput()
						finalHandles = append(finalHandles, t.Outputs...)
						queued = append(queued, t)
						pulled++
						continue
					case physicalplan.ItemTask:
						queued = append(queued, item.Task)
						pulled++
						continue
					case physicalplan.ItemSuspend:
					}
					break
				}
			}

			// Dispatch phase: admit what fits, requeue the rest.
			stillQueued := make([]*task.PartitionTask, 0, len(queued))
			g, gctx := errgroup.WithContext(ctx)
			for _, t := range queued {
				t := t
				if !s.admission.TryAdmit(t.Resource) {
					if chkErr := s.admission.Check(t.Resource); chkErr != nil {
						cancelAll()
						loopErr = chkErr
						return
					}
					admitRejects++
					stillQueued = append(stillQueued, t)
					continue
				}
				dispatched++
				g.Go(func() error {
					inputs, ok := s.cache.Resolve(t.Inputs)
					if !ok {
						return fmt.Errorf("scheduler: task %s references an unresolved input partition", t.ID)
					}
					f, err := s.pool.Dispatch(gctx, t, inputs)
					if err != nil {
						s.admission.Release(t.Resource)
						return fmt.Errorf("scheduler: dispatch failed for task %s: %w", t.ID, err)
					}
					inFlight[t.ID] = &inflightEntry{task: t, future: f, wave: wave, start: time.Now()}
					s.ectx.Tracer.TaskCreated(t.ID.String(), t.NodeID, t.Resource.CPU, t.Resource.GPU, t.Resource.MemoryBytes, instructionNames(t))
					s.ectx.Tracer.TaskDispatched(t.ID.String())
					return nil
				})
			}
			queued = stillQueued
			if err := g.Wait(); err != nil {
				cancelAll()
				loopErr = err
				return
			}

			// Await phase.
			if len(inFlight) > 0 {
				limiter.SetLimit(rate.Every(wait))
				limiter.Wait(ctx)

				futures := make([]Future, 0, len(inFlight))
				for _, e := range inFlight {
					futures = append(futures, e.future)
				}
				done, _ := s.pool.Wait(ctx, futures, wait)
				if len(done) == 0 {
					wait *= 2
					if wait > maxWait {
						wait = maxWait
					}
				} else {
					wait = minWait
				}

				for _, res := range done {
					entry, ok := inFlight[res.TaskID]
					if !ok {
						continue
					}
					delete(inFlight, res.TaskID)
					s.admission.Release(entry.task.Resource)
					s.ectx.Tracer.TaskCompleted(entry.task.ID.String(), entry.task.NodeID)

					if res.Err != nil {
						failed++
						taskFailErr = res.Err
						taskFailID = entry.task.ID.String()
						taskFailNode = entry.task.NodeID
						s.logTask(entry, 0, 0, "failed", res.Err)
						cancelAll()
						return
					}
					completed++
					var totalRows, totalBytes int64
					for i, out := range entry.task.Outputs {
						s.cache.Insert(out, res.Outputs[i], res.Metadata[i])
						plan.NotifyCompletion(out, res.Metadata[i])
						totalRows += res.Metadata[i].NumRows
						totalBytes += res.Metadata[i].SizeBytes
					}
					s.logTask(entry, totalRows, totalBytes, "done", nil)
				}
			}
		})

		s.ectx.Tracer.Counter("inflight_tasks", len(inFlight))

		s.ectx.Logger.LogWave(ctx, observability.WaveLogEntry{
			RunID:        s.ectx.RunID,
			Wave:         wave,
			Pulled:       pulled,
			Dispatched:   dispatched,
			AdmitRejects: admitRejects,
			Completed:    completed,
			Failed:       failed,
			WaitMs:       wait.Milliseconds(),
			DurationMs:   time.Since(waveStart).Milliseconds(),
		})

		if loopErr != nil {
			return nil, loopErr
		}
		if failed > 0 {
			return nil, enginerrors.NewTaskFailed(taskFailID, taskFailNode, taskFailErr)
		}

		if planExhausted && len(queued) == 0 && len(inFlight) == 0 {
			if _, allReady := s.cache.Resolve(finalHandles); !allReady {
				return nil, enginerrors.NewRunCancelled("plan finished but not every final handle resolved in the partition cache")
			}
			return finalHandles, nil
		}

		if err := ctx.Err(); err != nil {
			cancelAll()
			return nil, enginerrors.NewRunCancelled(err.Error())
		}
	}
}

func (s *Scheduler) logTask(e *inflightEntry, rows, bytes int64, outcome string, taskErr error) {
	errMsg := ""
	if taskErr != nil {
		errMsg = taskErr.Error()
	}
	s.ectx.Logger.LogTask(context.Background(), observability.TaskLogEntry{
		RunID:        s.ectx.RunID,
		TaskID:       e.task.ID.String(),
		NodeID:       e.task.NodeID,
		Instructions: instructionNameList(e.task),
		Wave:         e.wave,
		QueueMs:      0,
		RunMs:        time.Since(e.start).Milliseconds(),
		NumRows:      rows,
		SizeBytes:    bytes,
		Outcome:      outcome,
		Error:        errMsg,
	})
}

func instructionNames(t *task.PartitionTask) string {
	names := instructionNameList(t)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += "-"
		}
		out += n
	}
	return out
}

func instructionNameList(t *task.PartitionTask) []string {
	names := make([]string, len(t.Instructions))
	for i, instr := range t.Instructions {
		names[i] = instr.Name()
	}
	return names
}
