package task

import (
	"context"

	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/partition"
)

// Executor is the worker-side backend an Instruction dispatches its
// actual work to. internal/workerexec provides a DuckDB-backed
// implementation; tests use an in-memory fake.
type Executor interface {
	ReadFile(ctx context.Context, source logicalplan.ScanSourceInfo, schema logicalplan.Schema, predicate logicalplan.ExpressionList) (partition.Partition, error)
	WriteFile(ctx context.Context, info logicalplan.WriteInfo, input partition.Partition) (partition.Partition, error)
	Filter(ctx context.Context, input partition.Partition, predicate logicalplan.ExpressionList) (partition.Partition, error)
	Project(ctx context.Context, input partition.Partition, exprs logicalplan.ExpressionList) (partition.Partition, error)
	Aggregate(ctx context.Context, input partition.Partition, agg []logicalplan.AggPair, groupBy logicalplan.ExpressionList) (partition.Partition, error)
	Join(ctx context.Context, left, right partition.Partition, leftKeys, rightKeys logicalplan.ExpressionList, how logicalplan.JoinHow) (partition.Partition, error)
	LocalLimit(ctx context.Context, input partition.Partition, n int64) (partition.Partition, error)
	Sample(ctx context.Context, input partition.Partition, fraction float64, withReplacement bool) (partition.Partition, error)
	ReduceToQuantiles(ctx context.Context, inputs []partition.Partition, keys logicalplan.ExpressionList, descending []bool, numQuantiles int) (partition.Partition, error)
	FanoutHash(ctx context.Context, input partition.Partition, keys logicalplan.ExpressionList, numPartitions int) ([]partition.Partition, error)
	FanoutRange(ctx context.Context, input partition.Partition, boundaries partition.Partition, keys logicalplan.ExpressionList, descending []bool) ([]partition.Partition, error)
	FanoutRandom(ctx context.Context, input partition.Partition, numPartitions int) ([]partition.Partition, error)
	ReduceMerge(ctx context.Context, inputs []partition.Partition) (partition.Partition, error)
	ReduceMergeAndSort(ctx context.Context, inputs []partition.Partition, keys logicalplan.ExpressionList, descending []bool) (partition.Partition, error)
}

// Instruction is one worker-side step of a PartitionTask. Instructions
// are pure data: the factory and optimizer never execute one, they only
// build, inspect, and fuse them. Run is only ever called by the runner
// that owns an Executor (internal/scheduler via internal/workerexec).
type Instruction interface {
	Name() string
	ResourceRequest() ResourceRequest
	// NumOutputs reports how many output partitions this instruction
	// produces given numInputs input partitions (1 for all instructions
	// except the fanout family, which is 1:N).
	NumOutputs(numInputs int) int
	Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error)
}

func single(p partition.Partition, err error) ([]partition.Partition, error) {
	if err != nil {
		return nil, err
	}
	return []partition.Partition{p}, nil
}

// ReadFile reads the files named in Source into one data partition; it
// takes no input partitions.
type ReadFile struct {
	Source    logicalplan.ScanSourceInfo
	Schema    logicalplan.Schema
	Predicate logicalplan.ExpressionList
}

func (ReadFile) Name() string                    { return "ReadFile" }
func (ReadFile) NumOutputs(numInputs int) int     { return 1 }
func (r ReadFile) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (r ReadFile) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.ReadFile(ctx, r.Source, r.Schema, r.Predicate))
}

// WriteFile persists a partition and returns a single summary-row partition.
type WriteFile struct {
	Info logicalplan.WriteInfo
}

func (WriteFile) Name() string                { return "WriteFile" }
func (WriteFile) NumOutputs(numInputs int) int { return 1 }
func (WriteFile) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (w WriteFile) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.WriteFile(ctx, w.Info, inputs[0]))
}

// Filter keeps rows matching Predicate.
type Filter struct {
	Predicate logicalplan.ExpressionList
}

func (Filter) Name() string                { return "Filter" }
func (Filter) NumOutputs(numInputs int) int { return 1 }
func (Filter) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (f Filter) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.Filter(ctx, inputs[0], f.Predicate))
}

// Project computes Exprs against the input.
type Project struct {
	Exprs logicalplan.ExpressionList
}

func (Project) Name() string                { return "Project" }
func (Project) NumOutputs(numInputs int) int { return 1 }
func (Project) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (p Project) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.Project(ctx, inputs[0], p.Exprs))
}

// Aggregate computes per-partition aggregates grouped by GroupBy.
type Aggregate struct {
	Agg     []logicalplan.AggPair
	GroupBy logicalplan.ExpressionList
}

func (Aggregate) Name() string                { return "Aggregate" }
func (Aggregate) NumOutputs(numInputs int) int { return 1 }
func (Aggregate) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (a Aggregate) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.Aggregate(ctx, inputs[0], a.Agg, a.GroupBy))
}

// Join merges a co-located left and right input partition pair.
type Join struct {
	LeftKeys  logicalplan.ExpressionList
	RightKeys logicalplan.ExpressionList
	How       logicalplan.JoinHow
}

func (Join) Name() string                { return "Join" }
func (Join) NumOutputs(numInputs int) int { return 1 }
func (Join) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1, MemoryBytes: 256 << 20} }
func (j Join) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.Join(ctx, inputs[0], inputs[1], j.LeftKeys, j.RightKeys, j.How))
}

// LocalLimit caps a single partition's row count independently.
type LocalLimit struct {
	Num int64
}

func (LocalLimit) Name() string                { return "LocalLimit" }
func (LocalLimit) NumOutputs(numInputs int) int { return 1 }
func (LocalLimit) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (l LocalLimit) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.LocalLimit(ctx, inputs[0], l.Num))
}

// Sample draws a random subset of rows, used to build sort boundaries.
type Sample struct {
	Fraction        float64
	WithReplacement bool
}

func (Sample) Name() string                { return "Sample" }
func (Sample) NumOutputs(numInputs int) int { return 1 }
func (Sample) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (s Sample) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.Sample(ctx, inputs[0], s.Fraction, s.WithReplacement))
}

// ReduceToQuantiles merges sampled partitions into one partition of
// NumQuantiles sort-key boundary rows, consumed by FanoutRange.
type ReduceToQuantiles struct {
	Keys         logicalplan.ExpressionList
	Descending   []bool
	NumQuantiles int
}

func (ReduceToQuantiles) Name() string                { return "ReduceToQuantiles" }
func (ReduceToQuantiles) NumOutputs(numInputs int) int { return 1 }
func (ReduceToQuantiles) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (r ReduceToQuantiles) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.ReduceToQuantiles(ctx, inputs, r.Keys, r.Descending, r.NumQuantiles))
}

// FanoutHash splits a partition into NumPartitions buckets by hashing Keys.
type FanoutHash struct {
	Keys          logicalplan.ExpressionList
	NumPartitions int
}

func (FanoutHash) Name() string                   { return "FanoutHash" }
func (f FanoutHash) NumOutputs(numInputs int) int { return f.NumPartitions }
func (FanoutHash) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (f FanoutHash) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return exec.FanoutHash(ctx, inputs[0], f.Keys, f.NumPartitions)
}

// FanoutRange splits a partition into range buckets defined by a
// boundaries partition (the output of ReduceToQuantiles).
type FanoutRange struct {
	Keys          logicalplan.ExpressionList
	Descending    []bool
	NumPartitions int
}

func (FanoutRange) Name() string                   { return "FanoutRange" }
func (f FanoutRange) NumOutputs(numInputs int) int { return f.NumPartitions }
func (FanoutRange) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (f FanoutRange) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return exec.FanoutRange(ctx, inputs[0], inputs[1], f.Keys, f.Descending)
}

// FanoutRandom splits a partition into NumPartitions buckets uniformly at random.
type FanoutRandom struct {
	NumPartitions int
}

func (FanoutRandom) Name() string                   { return "FanoutRandom" }
func (f FanoutRandom) NumOutputs(numInputs int) int { return f.NumPartitions }
func (FanoutRandom) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (f FanoutRandom) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return exec.FanoutRandom(ctx, inputs[0], f.NumPartitions)
}

// ReduceMerge concatenates every input partition into one, preserving
// whatever relative order the shuffle's per-bucket partitions arrive in.
type ReduceMerge struct{}

func (ReduceMerge) Name() string                { return "ReduceMerge" }
func (ReduceMerge) NumOutputs(numInputs int) int { return 1 }
func (ReduceMerge) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (ReduceMerge) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.ReduceMerge(ctx, inputs))
}

// ReduceMergeAndSort concatenates every input partition and sorts the
// result by Keys, the final phase of a distributed sort.
type ReduceMergeAndSort struct {
	Keys       logicalplan.ExpressionList
	Descending []bool
}

func (ReduceMergeAndSort) Name() string                { return "ReduceMergeAndSort" }
func (ReduceMergeAndSort) NumOutputs(numInputs int) int { return 1 }
func (ReduceMergeAndSort) ResourceRequest() ResourceRequest { return ResourceRequest{CPU: 1} }
func (r ReduceMergeAndSort) Run(ctx context.Context, exec Executor, inputs []partition.Partition) ([]partition.Partition, error) {
	return single(exec.ReduceMergeAndSort(ctx, inputs, r.Keys, r.Descending))
}
