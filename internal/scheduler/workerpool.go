package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/partition"
	"github.com/canonica-labs/distframe/internal/task"
)

// Future identifies a dispatched task whose result has not yet been
// collected by Wait.
type Future interface {
	TaskID() uuid.UUID
}

// Result is what a worker reports back for one completed (or failed)
// task. Outputs/Metadata are parallel slices, one entry per output
// partition the task's last instruction produced.
type Result struct {
	TaskID   uuid.UUID
	Outputs  []partition.Partition
	Metadata []handle.PartitionMetadata
	Err      error
}

// WorkerPool is the scheduler's abstraction over however tasks actually
// run: in-process goroutines (LocalWorkerPool) or remote workers
// (internal/distworker, reached over gRPC). Per §4.F: dispatch(task) →
// future, wait(futures, timeout) → (done, pending).
type WorkerPool interface {
	Dispatch(ctx context.Context, t *task.PartitionTask, inputs []partition.Partition) (Future, error)
	Wait(ctx context.Context, futures []Future, timeout time.Duration) (done []Result, pending []Future)
	// Cancel best-effort cancels a dispatched task; the worker pool must
	// ensure its outputs, if any arrive after this call, are dropped
	// rather than reported through Wait.
	Cancel(f Future)
}

type localFuture struct {
	taskID uuid.UUID
}

func (f *localFuture) TaskID() uuid.UUID { return f.taskID }

// LocalWorkerPool runs every task in its own goroutine against a single
// in-process task.Executor, the `runner = local` configuration axis.
type LocalWorkerPool struct {
	exec      task.Executor
	resultsCh chan Result

	mu        sync.Mutex
	cancelled map[uuid.UUID]bool
	cancelFns map[uuid.UUID]context.CancelFunc
}

// NewLocalWorkerPool builds a pool that executes every instruction chain
// against exec (the DuckDB-backed implementation in production, a fake
// in tests).
func NewLocalWorkerPool(exec task.Executor) *LocalWorkerPool {
	return &LocalWorkerPool{
		exec:      exec,
		resultsCh: make(chan Result, 64),
		cancelled: make(map[uuid.UUID]bool),
		cancelFns: make(map[uuid.UUID]context.CancelFunc),
	}
}

func (p *LocalWorkerPool) Dispatch(ctx context.Context, t *task.PartitionTask, inputs []partition.Partition) (Future, error) {
	taskCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancelFns[t.ID] = cancel
	p.mu.Unlock()

	go func() {
		outputs, err := p.run(taskCtx, t, inputs)

		p.mu.Lock()
		cancelled := p.cancelled[t.ID]
		p.mu.Unlock()
		if cancelled {
			return
		}

		var res Result
		if err != nil {
			res = Result{TaskID: t.ID, Err: err}
		} else {
			metas := make([]handle.PartitionMetadata, len(outputs))
			for i, o := range outputs {
				metas[i] = partition.Metadata(o)
			}
			res = Result{TaskID: t.ID, Outputs: outputs, Metadata: metas}
		}
		p.resultsCh <- res
	}()

	return &localFuture{taskID: t.ID}, nil
}

// run executes a task's fused instruction chain via task.RunChain. A
// task with no instructions (a coalesce/shuffle singleton pass-through)
// is an identity: its outputs alias its inputs' partitions directly.
func (p *LocalWorkerPool) run(ctx context.Context, t *task.PartitionTask, inputs []partition.Partition) ([]partition.Partition, error) {
	return task.RunChain(ctx, p.exec, t.Instructions, inputs)
}

func (p *LocalWorkerPool) Wait(ctx context.Context, futures []Future, timeout time.Duration) (done []Result, pending []Future) {
	want := make(map[uuid.UUID]Future, len(futures))
	for _, f := range futures {
		want[f.TaskID()] = f
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(want) > 0 {
		select {
		case res := <-p.resultsCh:
			if _, ok := want[res.TaskID]; ok {
				done = append(done, res)
				delete(want, res.TaskID)
			}
		case <-timer.C:
			for _, f := range want {
				pending = append(pending, f)
			}
			return done, pending
		case <-ctx.Done():
			for _, f := range want {
				pending = append(pending, f)
			}
			return done, pending
		}
	}
	return done, nil
}

func (p *LocalWorkerPool) Cancel(f Future) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled[f.TaskID()] = true
	if cancel, ok := p.cancelFns[f.TaskID()]; ok {
		cancel()
		delete(p.cancelFns, f.TaskID())
	}
}
