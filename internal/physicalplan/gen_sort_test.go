package physicalplan_test

import (
	"context"
	"testing"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/partition"
	"github.com/canonica-labs/distframe/internal/physicalplan"
	"github.com/canonica-labs/distframe/internal/scheduler"
)

// fakeRowsPartition is a minimal partition.Partition carrying only a row
// count; this file doesn't need real sort-key data, only enough
// structure to drive the scheduler's task graph end to end.
type fakeRowsPartition struct{ rows int64 }

func (p fakeRowsPartition) Schema() logicalplan.Schema          { return logicalplan.Schema{} }
func (p fakeRowsPartition) NumRows() int64                      { return p.rows }
func (p fakeRowsPartition) SizeBytes() int64                    { return p.rows * 8 }
func (p fakeRowsPartition) MinMax(string) (handle.MinMax, bool) { return handle.MinMax{}, false }

// sortExec is a fake task.Executor implementing only the instructions a
// Sort's physical plan actually issues (ReadFile, Sample,
// ReduceToQuantiles, FanoutRange, ReduceMergeAndSort); every other
// Executor method panics, so a test relying on one fails loudly rather
// than silently returning zero values.
type sortExec struct {
	rowsPerPartition int64
	fanout           int
}

func (e *sortExec) ReadFile(context.Context, logicalplan.ScanSourceInfo, logicalplan.Schema, logicalplan.ExpressionList) (partition.Partition, error) {
	return fakeRowsPartition{rows: e.rowsPerPartition}, nil
}
func (e *sortExec) Sample(context.Context, partition.Partition, float64, bool) (partition.Partition, error) {
	return fakeRowsPartition{rows: 1}, nil
}
func (e *sortExec) ReduceToQuantiles(context.Context, []partition.Partition, logicalplan.ExpressionList, []bool, int) (partition.Partition, error) {
	return fakeRowsPartition{rows: 1}, nil
}
func (e *sortExec) FanoutRange(ctx context.Context, input, boundaries partition.Partition, keys logicalplan.ExpressionList, descending []bool) ([]partition.Partition, error) {
	out := make([]partition.Partition, e.fanout)
	for i := range out {
		out[i] = fakeRowsPartition{rows: input.NumRows() / int64(e.fanout)}
	}
	return out, nil
}
func (e *sortExec) ReduceMergeAndSort(ctx context.Context, inputs []partition.Partition, keys logicalplan.ExpressionList, descending []bool) (partition.Partition, error) {
	var total int64
	for _, in := range inputs {
		total += in.NumRows()
	}
	return fakeRowsPartition{rows: total}, nil
}
func (e *sortExec) WriteFile(context.Context, logicalplan.WriteInfo, partition.Partition) (partition.Partition, error) {
	panic("not implemented")
}
func (e *sortExec) Filter(context.Context, partition.Partition, logicalplan.ExpressionList) (partition.Partition, error) {
	panic("not implemented")
}
func (e *sortExec) Project(context.Context, partition.Partition, logicalplan.ExpressionList) (partition.Partition, error) {
	panic("not implemented")
}
func (e *sortExec) Aggregate(context.Context, partition.Partition, []logicalplan.AggPair, logicalplan.ExpressionList) (partition.Partition, error) {
	panic("not implemented")
}
func (e *sortExec) Join(context.Context, partition.Partition, partition.Partition, logicalplan.ExpressionList, logicalplan.ExpressionList, logicalplan.JoinHow) (partition.Partition, error) {
	panic("not implemented")
}
func (e *sortExec) LocalLimit(context.Context, partition.Partition, int64) (partition.Partition, error) {
	panic("not implemented")
}
func (e *sortExec) FanoutHash(context.Context, partition.Partition, logicalplan.ExpressionList, int) ([]partition.Partition, error) {
	panic("not implemented")
}
func (e *sortExec) FanoutRandom(context.Context, partition.Partition, int) ([]partition.Partition, error) {
	panic("not implemented")
}
func (e *sortExec) ReduceMerge(context.Context, []partition.Partition) (partition.Partition, error) {
	panic("not implemented")
}

// TestSchedulerRunDrivesSortToCompletion exercises a real Sort physical
// plan (boundary sampling, range fanout, per-bucket merge-and-sort)
// through a real scheduler.Scheduler.Run, which is the only way to catch
// a generator that builds a dependent task before its producer's output
// actually lands in the partition cache (the two are dispatched in the
// same wave otherwise, and PartitionCache.Resolve deterministically
// fails for the dependent task's inputs).
func TestSchedulerRunDrivesSortToCompletion(t *testing.T) {
	var alloc logicalplan.ColIDAllocator
	idCol := alloc.Next()
	schema := logicalplan.NewSchema(logicalplan.Field{ID: idCol, Name: "id", Type: "int64"})
	scan := logicalplan.NewTabularFilesScan(
		schema,
		logicalplan.ScanSourceInfo{Format: logicalplan.FormatParquet, Paths: []string{"a.parquet", "b.parquet"}},
		logicalplan.UnknownSpec(2),
	)
	sortNode := logicalplan.NewSort(scan, logicalplan.ExpressionList{logicalplan.Col(idCol, "id", "int64")}, []bool{false}, 2)

	plan, err := physicalplan.NewPhysicalPlan(sortNode)
	if err != nil {
		t.Fatalf("NewPhysicalPlan: %v", err)
	}

	pool := scheduler.NewLocalWorkerPool(&sortExec{rowsPerPartition: 10, fanout: 2})
	s := scheduler.New(pool, scheduler.EngineContext{
		RunID:  "run-1",
		Config: scheduler.SchedulerConfig{CapCPU: 8, CapGPU: 0, CapMemoryBytes: 8 << 30},
	})

	final, err := s.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("Run() final handles = %v, want 2 (one per output bucket)", final)
	}
	for _, h := range final {
		if _, ok := s.Cache().Get(h); !ok {
			t.Errorf("final handle %v was never resolved in the partition cache", h)
		}
	}
}
