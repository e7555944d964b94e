package physicalplan

import (
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/task"
)

// coalesceGroupSizes splits fromN input partitions into to contiguous
// groups as evenly as possible, matching the teacher's even work-split
// helpers elsewhere in the codebase.
func coalesceGroupSizes(fromN, to int) []int {
	if to <= 0 {
		to = 1
	}
	base := fromN / to
	rem := fromN % to
	sizes := make([]int, to)
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

// coalesceGen merges child partitions into fewer, larger ones via
// ReduceMerge, preserving relative order. It must finalize every task it
// pulls because it needs concrete handles to group into the next
// ReduceMerge's inputs.
type coalesceGen struct {
	nodeID    string
	child     PhysicalPlan
	sizes     []int
	groupIdx  int
	buffer    []handle.PartitionHandle
	childDone bool
	// completed tracks handles the scheduler has confirmed Done (via
	// NotifyCompletion). A group's ReduceMerge (or singleton pass-through)
	// task may only be built once every handle it reads is in this set,
	// or the scheduler would dispatch it in the same wave its inputs were
	// finalized, before PartitionCache has anything to resolve them to.
	completed map[handle.PartitionHandle]struct{}
}

func newCoalesceGen(nodeID string, child PhysicalPlan, fromN, to int) *coalesceGen {
	return &coalesceGen{nodeID: nodeID, child: child, sizes: coalesceGroupSizes(fromN, to), completed: map[handle.PartitionHandle]struct{}{}}
}

func (g *coalesceGen) Poll() (Item, error) {
	if g.groupIdx >= len(g.sizes) {
		return doneItem(), nil
	}
	need := g.sizes[g.groupIdx]
	for len(g.buffer) < need && !g.childDone {
		item, err := g.child.Poll()
		if err != nil {
			return Item{}, err
		}
		switch item.Kind {
		case ItemOpenTask:
			t := item.Builder.FinalizeSingleOutput()
			g.buffer = append(g.buffer, t.Outputs...)
			return taskItem(t), nil
		case ItemTask:
			g.buffer = append(g.buffer, item.Task.Outputs...)
			return item, nil
		case ItemDone:
			g.childDone = true
			g.buffer = append(g.buffer, item.Results...)
		case ItemSuspend:
			return item, nil
		}
	}

	if len(g.buffer) < need {
		need = len(g.buffer)
		if need == 0 {
			g.groupIdx = len(g.sizes)
			return doneItem(), nil
		}
	}

	inputs := g.buffer[:need]
	for _, h := range inputs {
		if _, ok := g.completed[h]; !ok {
			return suspendItem(), nil
		}
	}
	g.buffer = g.buffer[need:]
	g.groupIdx++
	for _, h := range inputs {
		delete(g.completed, h)
	}
	if len(inputs) == 1 {
		// a singleton group needs no merge instruction at all.
		b := task.NewBuilder(g.nodeID, inputs...)
		return openTaskItem(b), nil
	}
	b := task.NewBuilder(g.nodeID, inputs...)
	b.Pipeline(task.ReduceMerge{})
	return openTaskItem(b), nil
}

func (g *coalesceGen) NotifyCompletion(h handle.PartitionHandle, meta handle.PartitionMetadata) {
	g.completed[h] = struct{}{}
	g.child.NotifyCompletion(h, meta)
}
