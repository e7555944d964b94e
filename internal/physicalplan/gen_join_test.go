package physicalplan

import (
	"testing"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/task"
)

// TestJoinGenSuspendsUntilBothSidesAreDone is the regression test for a
// join built the instant both sides were merely finalized: it must
// yield ItemSuspend until NotifyCompletion confirms each side's
// producing task is actually Done, or the scheduler would dispatch the
// join in the same wave as its inputs, before PartitionCache has
// anything to resolve them to.
func TestJoinGenSuspendsUntilBothSidesAreDone(t *testing.T) {
	tl := task.NewBuilder("left-scan").FinalizeSingleOutput()
	tr := task.NewBuilder("right-scan").FinalizeSingleOutput()
	left := &fixedGen{items: []Item{taskItem(tl)}}
	right := &fixedGen{items: []Item{taskItem(tr)}}

	g := newJoinGen("join-1", left, right, nil, nil, logicalplan.JoinInner)

	first, err := g.Poll()
	if err != nil || first.Kind != ItemTask {
		t.Fatalf("Poll() #1 = %+v, err %v; want the left leaf task", first, err)
	}
	second, err := g.Poll()
	if err != nil || second.Kind != ItemTask {
		t.Fatalf("Poll() #2 = %+v, err %v; want the right leaf task", second, err)
	}

	third, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if third.Kind != ItemSuspend {
		t.Fatalf("Poll() #3 = %v, want ItemSuspend: neither side is confirmed Done yet", third.Kind)
	}

	g.NotifyCompletion(tl.Outputs[0], handle.PartitionMetadata{NumRows: 1})
	g.NotifyCompletion(tr.Outputs[0], handle.PartitionMetadata{NumRows: 1})

	fourth, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if fourth.Kind != ItemOpenTask {
		t.Fatalf("Poll() #4 = %v, want ItemOpenTask once both sides are confirmed Done", fourth.Kind)
	}

	fifth, err := g.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if fifth.Kind != ItemDone {
		t.Fatalf("Poll() #5 = %v, want ItemDone once both sides are exhausted", fifth.Kind)
	}
}
