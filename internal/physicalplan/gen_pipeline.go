package physicalplan

import (
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/task"
)

// pipelineGen wraps a single-input, single-output instruction (Filter,
// Project, Aggregate, WriteFile) around its child. When the child yields
// an open builder, pipelineGen fuses its instruction directly onto it
// instead of materializing an intermediate partition — true multi-stage
// fusion falls out of this chain for free, since every pipeline stage in
// a chain shares one open builder until a boundary generator finalizes it.
type pipelineGen struct {
	nodeID  string
	newInstr func() task.Instruction
	child   PhysicalPlan

	pending   []handle.PartitionHandle
	childDone bool
}

func newPipelineGen(nodeID string, child PhysicalPlan, newInstr func() task.Instruction) *pipelineGen {
	return &pipelineGen{nodeID: nodeID, newInstr: newInstr, child: child}
}

func (g *pipelineGen) Poll() (Item, error) {
	if len(g.pending) > 0 {
		h := g.pending[0]
		g.pending = g.pending[1:]
		b := task.NewBuilder(g.nodeID, h)
		b.Pipeline(g.newInstr())
		return openTaskItem(b), nil
	}
	if g.childDone {
		return doneItem(), nil
	}

	item, err := g.child.Poll()
	if err != nil {
		return Item{}, err
	}
	switch item.Kind {
	case ItemOpenTask:
		item.Builder.Pipeline(g.newInstr())
		return item, nil
	case ItemTask:
		g.pending = append(g.pending, item.Task.Outputs...)
		return item, nil
	case ItemDone:
		g.childDone = true
		g.pending = append(g.pending, item.Results...)
		return suspendItem(), nil
	default:
		return item, nil
	}
}

func (g *pipelineGen) NotifyCompletion(h handle.PartitionHandle, meta handle.PartitionMetadata) {
	g.child.NotifyCompletion(h, meta)
}
