package physicalplan

import (
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/task"
)

// fanoutReduceGen implements a hash or random shuffle: every input
// partition is split into numPartitions buckets (FanoutHash/FanoutRandom),
// then every destination bucket's pieces across all source partitions
// are merged with a single ReduceMerge. Both phases must finalize
// eagerly since a many-to-one reduce needs concrete handles from every
// source before it can be built.
type fanoutReduceGen struct {
	nodeID        string
	child         PhysicalPlan
	numPartitions int
	makeFanout    func() task.Instruction

	pendingEmit []Item
	buckets     [][]handle.PartitionHandle
	childDone   bool
	reduceIdx   int
}

func newFanoutReduceGen(nodeID string, child PhysicalPlan, numPartitions int, makeFanout func() task.Instruction) *fanoutReduceGen {
	return &fanoutReduceGen{
		nodeID:        nodeID,
		child:         child,
		numPartitions: numPartitions,
		makeFanout:    makeFanout,
		buckets:       make([][]handle.PartitionHandle, numPartitions),
	}
}

func (g *fanoutReduceGen) queueFanout(inputs ...handle.PartitionHandle) {
	b := task.NewBuilder(g.nodeID, inputs...)
	b.Pipeline(g.makeFanout())
	t := b.FinalizeMultiOutput(g.numPartitions)
	for i, h := range t.Outputs {
		g.buckets[i] = append(g.buckets[i], h)
	}
	g.pendingEmit = append(g.pendingEmit, taskItem(t))
}

func (g *fanoutReduceGen) Poll() (Item, error) {
	if len(g.pendingEmit) > 0 {
		item := g.pendingEmit[0]
		g.pendingEmit = g.pendingEmit[1:]
		return item, nil
	}

	if !g.childDone {
		item, err := g.child.Poll()
		if err != nil {
			return Item{}, err
		}
		switch item.Kind {
		case ItemOpenTask:
			item.Builder.Pipeline(g.makeFanout())
			t := item.Builder.FinalizeMultiOutput(g.numPartitions)
			for i, h := range t.Outputs {
				g.buckets[i] = append(g.buckets[i], h)
			}
			return taskItem(t), nil
		case ItemTask:
			g.queueFanout(item.Task.Outputs...)
			g.pendingEmit = append([]Item{item}, g.pendingEmit...)
			return g.Poll()
		case ItemDone:
			g.childDone = true
			for _, h := range item.Results {
				g.queueFanout(h)
			}
			return g.Poll()
		default:
			return item, nil
		}
	}

	// every source partition has been fanned out; reduce one destination
	// bucket at a time.
	if g.reduceIdx >= len(g.buckets) {
		return doneItem(), nil
	}
	bucket := g.buckets[g.reduceIdx]
	g.reduceIdx++
	if len(bucket) == 0 {
		// an empty destination bucket still needs an empty placeholder
		// partition so downstream NumPartitions stays correct; a
		// zero-input ReduceMerge task produces one.
		b := task.NewBuilder(g.nodeID)
		b.Pipeline(task.ReduceMerge{})
		return openTaskItem(b), nil
	}
	if len(bucket) == 1 {
		b := task.NewBuilder(g.nodeID, bucket...)
		return openTaskItem(b), nil
	}
	b := task.NewBuilder(g.nodeID, bucket...)
	b.Pipeline(task.ReduceMerge{})
	return openTaskItem(b), nil
}

func (g *fanoutReduceGen) NotifyCompletion(h handle.PartitionHandle, meta handle.PartitionMetadata) {
	g.child.NotifyCompletion(h, meta)
}

// newRepartitionGen builds the physical generator for a Repartition
// logical node, dispatching on its target scheme.
func newRepartitionGen(nodeID string, child PhysicalPlan, spec logicalplan.PartitionSpec) (PhysicalPlan, error) {
	switch spec.Scheme {
	case logicalplan.SchemeHash:
		keys := exprListFromIDs(spec.Keys)
		return newFanoutReduceGen(nodeID, child, spec.NumPartitions, func() task.Instruction {
			return task.FanoutHash{Keys: keys, NumPartitions: spec.NumPartitions}
		}), nil
	case logicalplan.SchemeRandom:
		return newFanoutReduceGen(nodeID, child, spec.NumPartitions, func() task.Instruction {
			return task.FanoutRandom{NumPartitions: spec.NumPartitions}
		}), nil
	case logicalplan.SchemeRange:
		keys := exprListFromIDs(spec.Keys)
		return newRangeShuffleGen(nodeID, child, keys, spec.Descending, spec.NumPartitions, false), nil
	default:
		return newFanoutReduceGen(nodeID, child, spec.NumPartitions, func() task.Instruction {
			return task.FanoutRandom{NumPartitions: spec.NumPartitions}
		}), nil
	}
}

// exprListFromIDs recovers a minimal ExpressionList of bare column
// references from a PartitionSpec's key IDs; spec keys only ever need to
// identify which columns to hash/compare on, never compute anything.
func exprListFromIDs(ids []logicalplan.ColID) logicalplan.ExpressionList {
	exprs := make(logicalplan.ExpressionList, len(ids))
	for i, id := range ids {
		exprs[i] = logicalplan.Col(id, "", "")
	}
	return exprs
}
