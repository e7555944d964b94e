package physicalplan

import (
	"testing"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/task"
)

func TestCoalesceGroupSizesSplitsEvenly(t *testing.T) {
	sizes := coalesceGroupSizes(7, 3)
	total := 0
	for _, s := range sizes {
		total += s
	}
	if total != 7 {
		t.Fatalf("coalesceGroupSizes total = %d, want 7", total)
	}
	if len(sizes) != 3 {
		t.Fatalf("coalesceGroupSizes length = %d, want 3", len(sizes))
	}
}

// TestCoalesceGenSuspendsUntilGroupMembersAreDone is the regression test
// for a ReduceMerge built the instant a group's inputs were merely
// finalized: it must yield ItemSuspend until NotifyCompletion confirms
// every member of the group is actually Done.
func TestCoalesceGenSuspendsUntilGroupMembersAreDone(t *testing.T) {
	t1 := task.NewBuilder("scan-1").FinalizeSingleOutput()
	t2 := task.NewBuilder("scan-1").FinalizeSingleOutput()
	child := &fixedGen{items: []Item{taskItem(t1), taskItem(t2)}}

	g := newCoalesceGen("coalesce-1", child, 2, 1)

	first, err := g.Poll()
	if err != nil || first.Kind != ItemTask {
		t.Fatalf("Poll() #1 = %+v, err %v; want the first child task", first, err)
	}
	second, err := g.Poll()
	if err != nil || second.Kind != ItemTask {
		t.Fatalf("Poll() #2 = %+v, err %v; want the second child task", second, err)
	}

	third, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if third.Kind != ItemSuspend {
		t.Fatalf("Poll() #3 = %v, want ItemSuspend: neither input is confirmed Done yet", third.Kind)
	}

	g.NotifyCompletion(t1.Outputs[0], handle.PartitionMetadata{NumRows: 1})
	g.NotifyCompletion(t2.Outputs[0], handle.PartitionMetadata{NumRows: 1})

	fourth, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if fourth.Kind != ItemOpenTask {
		t.Fatalf("Poll() #4 = %v, want ItemOpenTask once both inputs are confirmed Done", fourth.Kind)
	}

	fifth, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if fifth.Kind != ItemDone {
		t.Fatalf("Poll() #5 = %v, want ItemDone", fifth.Kind)
	}
}
