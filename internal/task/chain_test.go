package task

import (
	"context"
	"errors"
	"testing"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/partition"
)

type fakeChainPartition struct{ rows int64 }

func (fakeChainPartition) Schema() logicalplan.Schema                 { return logicalplan.Schema{} }
func (p fakeChainPartition) NumRows() int64                           { return p.rows }
func (fakeChainPartition) SizeBytes() int64                           { return 0 }
func (fakeChainPartition) MinMax(string) (handle.MinMax, bool)        { return handle.MinMax{}, false }

func TestRunChainWithNoInstructionsIsIdentity(t *testing.T) {
	inputs := []partition.Partition{fakeChainPartition{rows: 5}}
	out, err := RunChain(context.Background(), nil, nil, inputs)
	if err != nil {
		t.Fatalf("RunChain: %v", err)
	}
	if len(out) != 1 || out[0] != inputs[0] {
		t.Errorf("RunChain with no instructions should return inputs unchanged, got %v", out)
	}
}

type limitOnlyExec struct{ failWith error }

func (e *limitOnlyExec) LocalLimit(ctx context.Context, input partition.Partition, n int64) (partition.Partition, error) {
	if e.failWith != nil {
		return nil, e.failWith
	}
	return input, nil
}
func (e *limitOnlyExec) ReadFile(context.Context, logicalplan.ScanSourceInfo, logicalplan.Schema, logicalplan.ExpressionList) (partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) WriteFile(context.Context, logicalplan.WriteInfo, partition.Partition) (partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) Filter(context.Context, partition.Partition, logicalplan.ExpressionList) (partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) Project(context.Context, partition.Partition, logicalplan.ExpressionList) (partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) Aggregate(context.Context, partition.Partition, []logicalplan.AggPair, logicalplan.ExpressionList) (partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) Join(context.Context, partition.Partition, partition.Partition, logicalplan.ExpressionList, logicalplan.ExpressionList, logicalplan.JoinHow) (partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) Sample(context.Context, partition.Partition, float64, bool) (partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) ReduceToQuantiles(context.Context, []partition.Partition, logicalplan.ExpressionList, []bool, int) (partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) FanoutHash(context.Context, partition.Partition, logicalplan.ExpressionList, int) ([]partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) FanoutRange(context.Context, partition.Partition, partition.Partition, logicalplan.ExpressionList, []bool) ([]partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) FanoutRandom(context.Context, partition.Partition, int) ([]partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) ReduceMerge(context.Context, []partition.Partition) (partition.Partition, error) {
	panic("not implemented")
}
func (e *limitOnlyExec) ReduceMergeAndSort(context.Context, []partition.Partition, logicalplan.ExpressionList, []bool) (partition.Partition, error) {
	panic("not implemented")
}

func TestRunChainThreadsOutputsIntoNextInstruction(t *testing.T) {
	inputs := []partition.Partition{fakeChainPartition{rows: 9}}
	instrs := []Instruction{LocalLimit{Num: 5}, LocalLimit{Num: 2}}
	out, err := RunChain(context.Background(), &limitOnlyExec{}, instrs, inputs)
	if err != nil {
		t.Fatalf("RunChain: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("RunChain output = %v, want 1 partition", out)
	}
}

func TestRunChainStopsAtTheFirstFailingInstruction(t *testing.T) {
	inputs := []partition.Partition{fakeChainPartition{rows: 9}}
	instrs := []Instruction{LocalLimit{Num: 5}}
	_, err := RunChain(context.Background(), &limitOnlyExec{failWith: errors.New("boom")}, instrs, inputs)
	if err == nil {
		t.Fatal("expected RunChain to surface the failing instruction's error")
	}
}
