package physicalplan

import (
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/task"
)

// rangeShuffleGen implements a range-partitioning shuffle, the
// distributed sort machinery shared by Sort (finalSort=true) and
// Repartition under a RANGE scheme (finalSort=false): sample every
// input partition, reduce the samples to per-partition boundaries, fan
// each input out against those boundaries, then merge each destination
// bucket (merge-and-sort for Sort, plain merge for Repartition).
//
// Computing boundaries is a genuine barrier: every input partition's
// sample must be finalized before ReduceToQuantiles can run, so this
// generator buffers the whole input partition list rather than
// streaming, unlike the hash/random shuffle.
type rangeShuffleGen struct {
	nodeID        string
	child         PhysicalPlan
	keys          logicalplan.ExpressionList
	descending    []bool
	numPartitions int
	finalSort     bool

	originals      []handle.PartitionHandle
	childDone      bool
	sampleBuiltIdx int
	samples        []handle.PartitionHandle

	quantiles     handle.PartitionHandle
	haveQuantiles bool

	buckets   [][]handle.PartitionHandle
	fanoutIdx int
	reduceIdx int

	// completed tracks handles the scheduler has confirmed Done (via
	// NotifyCompletion). Every stage below reads a sibling stage's output
	// handle as an input (samples read originals, quantiles read samples,
	// fanout reads both originals and quantiles, the final reduce reads
	// fanout outputs), so each stage must gate on the handles it consumes
	// being in this set before building its task — otherwise the
	// scheduler dispatches consumer and producer in the same wave, before
	// PartitionCache has anything to resolve the producer's output to.
	completed map[handle.PartitionHandle]struct{}
}

func newRangeShuffleGen(nodeID string, child PhysicalPlan, keys logicalplan.ExpressionList, descending []bool, numPartitions int, finalSort bool) *rangeShuffleGen {
	return &rangeShuffleGen{
		nodeID:        nodeID,
		child:         child,
		keys:          keys,
		descending:    descending,
		numPartitions: numPartitions,
		finalSort:     finalSort,
		buckets:       make([][]handle.PartitionHandle, numPartitions),
		completed:     map[handle.PartitionHandle]struct{}{},
	}
}

func (g *rangeShuffleGen) Poll() (Item, error) {
	// Stage 1: pull every original partition out of the child.
	if !g.childDone {
		item, err := g.child.Poll()
		if err != nil {
			return Item{}, err
		}
		switch item.Kind {
		case ItemOpenTask:
			t := item.Builder.FinalizeSingleOutput()
			g.originals = append(g.originals, t.Outputs[0])
			return taskItem(t), nil
		case ItemTask:
			g.originals = append(g.originals, item.Task.Outputs...)
			return item, nil
		case ItemDone:
			g.childDone = true
			g.originals = append(g.originals, item.Results...)
		default:
			return item, nil
		}
	}

	// Stage 2: sample each original once its producing task is Done.
	if g.sampleBuiltIdx < len(g.originals) {
		h := g.originals[g.sampleBuiltIdx]
		if _, ok := g.completed[h]; !ok {
			return suspendItem(), nil
		}
		g.sampleBuiltIdx++
		b := task.NewBuilder(g.nodeID, h)
		b.Pipeline(task.Sample{Fraction: 0.05})
		t := b.FinalizeSingleOutput()
		g.samples = append(g.samples, t.Outputs[0])
		return taskItem(t), nil
	}

	// Stage 3: reduce the samples to boundaries, once the child is
	// exhausted, every sample has been built, and every sample task has
	// actually completed.
	if !g.haveQuantiles {
		if !g.childDone || g.sampleBuiltIdx < len(g.originals) {
			return suspendItem(), nil
		}
		for _, s := range g.samples {
			if _, ok := g.completed[s]; !ok {
				return suspendItem(), nil
			}
		}
		numQuantiles := g.numPartitions - 1
		if numQuantiles < 0 {
			numQuantiles = 0
		}
		b := task.NewBuilder(g.nodeID, g.samples...)
		b.Pipeline(task.ReduceToQuantiles{Keys: g.keys, Descending: g.descending, NumQuantiles: numQuantiles})
		t := b.FinalizeSingleOutput()
		g.quantiles = t.Outputs[0]
		g.haveQuantiles = true
		return taskItem(t), nil
	}

	// Stage 4: fan each original out against the boundaries, once the
	// boundary task itself has completed (spec's "yield Suspend until
	// boundaries complete").
	if g.fanoutIdx < len(g.originals) {
		if _, ok := g.completed[g.quantiles]; !ok {
			return suspendItem(), nil
		}
		h := g.originals[g.fanoutIdx]
		g.fanoutIdx++
		b := task.NewBuilder(g.nodeID, h, g.quantiles)
		b.Pipeline(task.FanoutRange{Keys: g.keys, Descending: g.descending, NumPartitions: g.numPartitions})
		t := b.FinalizeMultiOutput(g.numPartitions)
		for i, oh := range t.Outputs {
			g.buckets[i] = append(g.buckets[i], oh)
		}
		return taskItem(t), nil
	}

	// Stage 5: merge (and, for a final sort, sort) each destination
	// bucket, once every fanout task feeding it has completed.
	if g.reduceIdx < len(g.buckets) {
		bucket := g.buckets[g.reduceIdx]
		for _, h := range bucket {
			if _, ok := g.completed[h]; !ok {
				return suspendItem(), nil
			}
		}
		g.reduceIdx++
		b := task.NewBuilder(g.nodeID, bucket...)
		if g.finalSort {
			b.Pipeline(task.ReduceMergeAndSort{Keys: g.keys, Descending: g.descending})
		} else if len(bucket) != 1 {
			b.Pipeline(task.ReduceMerge{})
		}
		return openTaskItem(b), nil
	}

	return doneItem(), nil
}

func (g *rangeShuffleGen) NotifyCompletion(h handle.PartitionHandle, meta handle.PartitionMetadata) {
	g.completed[h] = struct{}{}
	g.child.NotifyCompletion(h, meta)
}

func newSortGen(nodeID string, child PhysicalPlan, keys logicalplan.ExpressionList, descending []bool, numPartitions int) PhysicalPlan {
	return newRangeShuffleGen(nodeID, child, keys, descending, numPartitions, true)
}
