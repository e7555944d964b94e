package physicalplan

import (
	"testing"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/task"
)

type fixedGen struct {
	items []Item
	idx   int
}

func (g *fixedGen) Poll() (Item, error) {
	if g.idx >= len(g.items) {
		return doneItem(), nil
	}
	item := g.items[g.idx]
	g.idx++
	return item, nil
}

func (g *fixedGen) NotifyCompletion(handle.PartitionHandle, handle.PartitionMetadata) {}

func TestLocalLimitGenTightenShrinksNum(t *testing.T) {
	g := newLocalLimitGen("limit-1", &fixedGen{}, 100)
	g.Tighten(10)
	if g.num != 10 {
		t.Errorf("num = %d, want 10 after Tighten(10)", g.num)
	}
	g.Tighten(50)
	if g.num != 10 {
		t.Errorf("Tighten should never grow num, got %d", g.num)
	}
}

func TestLocalLimitGenPipelinesOntoOpenTasks(t *testing.T) {
	schema := logicalplan.NewSchema(logicalplan.Field{ID: 1, Name: "id", Type: "int64"})
	scanGen := newScanGen("scan-1", logicalplan.ScanSourceInfo{Paths: []string{"a.parquet"}}, schema, nil, 1)
	g := newLocalLimitGen("limit-1", scanGen, 10)

	item, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if item.Kind != ItemOpenTask {
		t.Fatalf("Poll() kind = %v, want ItemOpenTask", item.Kind)
	}

	second, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if second.Kind != ItemSuspend {
		t.Fatalf("Poll() right after the child reports done = %v, want ItemSuspend (no pending output yet)", second.Kind)
	}

	third, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if third.Kind != ItemDone {
		t.Fatalf("Poll() once the child is drained = %v, want ItemDone", third.Kind)
	}
}

func TestGlobalLimitGenStopsAtRemaining(t *testing.T) {
	g := newGlobalLimitGen("glimit-1", &fixedGen{}, 0, 0)
	item, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if item.Kind != ItemDone {
		t.Fatalf("a zero-row global limit should be done immediately, got %v", item.Kind)
	}
}

func TestGlobalLimitGenNotifyCompletionDecrementsRemaining(t *testing.T) {
	g := newGlobalLimitGen("glimit-1", &fixedGen{}, 100, 1)
	h := handle.NewPartitionHandle()
	g.inFlight[h] = true

	g.NotifyCompletion(h, handle.PartitionMetadata{NumRows: 40})
	if g.remaining != 60 {
		t.Errorf("remaining = %d, want 60 after a 40-row completion", g.remaining)
	}
	if g.inFlight[h] {
		t.Error("NotifyCompletion should clear the handle from inFlight")
	}
	if g.reuseHandle != h || !g.haveReuse {
		t.Error("NotifyCompletion should record the completed handle as the drain-time reuse handle")
	}
}

// TestGlobalLimitGenDrainsRemainingPartitionsWithZeroRowFillers is the
// literal spec.md §8 S5 scenario: GlobalLimit(3, partitions=[rows=5,
// rows=5]) must still produce 2 output partitions (the declared count),
// padding the second with a LocalLimit(0) filler once the cap is met,
// and must never ask the child for a task it no longer needs.
func TestGlobalLimitGenDrainsRemainingPartitionsWithZeroRowFillers(t *testing.T) {
	h1 := handle.NewPartitionHandle()
	h2 := handle.NewPartitionHandle()
	t1 := task.NewBuilder("scan-1", h1).FinalizeSingleOutput()
	t2 := task.NewBuilder("scan-1", h2).FinalizeSingleOutput()
	child := &fixedGen{items: []Item{taskItem(t1), taskItem(t2)}}

	g := newGlobalLimitGen("glimit-1", child, 3, 2)

	first, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if first.Kind != ItemTask {
		t.Fatalf("first Poll() kind = %v, want ItemTask", first.Kind)
	}
	if child.idx != 1 {
		t.Fatalf("child should have been polled exactly once so far, idx = %d", child.idx)
	}

	// The first partition has 5 rows but is capped at remaining=3, so it
	// actually emits 3 rows, exhausting the limit.
	g.NotifyCompletion(first.Task.Outputs[0], handle.PartitionMetadata{NumRows: 3})
	if g.remaining != 0 {
		t.Fatalf("remaining = %d, want 0", g.remaining)
	}

	second, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if second.Kind != ItemTask {
		t.Fatalf("second Poll() kind = %v, want ItemTask (a zero-row filler)", second.Kind)
	}
	if child.idx != 1 {
		t.Fatalf("child should never be asked for its second partition once the cap is met, idx = %d", child.idx)
	}
	if len(second.Task.Inputs) != 1 || second.Task.Inputs[0] != first.Task.Outputs[0] {
		t.Fatalf("filler task inputs = %v, want the first partition's completed handle reused", second.Task.Inputs)
	}
	if len(second.Task.Instructions) != 1 || second.Task.Instructions[0].Name() != "LocalLimit" {
		t.Fatalf("filler task instructions = %v, want a single LocalLimit", second.Task.Instructions)
	}

	third, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if third.Kind != ItemDone {
		t.Fatalf("third Poll() kind = %v, want ItemDone once the declared partition count is satisfied", third.Kind)
	}
	if len(third.Results) != 2 {
		t.Fatalf("ItemDone Results = %v, want 2 handles (the declared output partition count)", third.Results)
	}
	if third.Results[0] != first.Task.Outputs[0] || third.Results[1] != second.Task.Outputs[0] {
		t.Fatalf("ItemDone Results = %v, want [real partition, filler partition]", third.Results)
	}
}
