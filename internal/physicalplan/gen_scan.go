package physicalplan

import (
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/task"
)

// scanGen emits one ReadFile task per output partition, round-robin
// distributing the scan's file paths across partitions.
type scanGen struct {
	nodeID        string
	source        logicalplan.ScanSourceInfo
	schema        logicalplan.Schema
	predicate     logicalplan.ExpressionList
	numPartitions int
	emitted       int
}

func newScanGen(nodeID string, source logicalplan.ScanSourceInfo, schema logicalplan.Schema, predicate logicalplan.ExpressionList, numPartitions int) *scanGen {
	if numPartitions < 1 {
		numPartitions = 1
	}
	return &scanGen{nodeID: nodeID, source: source, schema: schema, predicate: predicate, numPartitions: numPartitions}
}

func (g *scanGen) Poll() (Item, error) {
	if g.emitted >= g.numPartitions {
		return doneItem(), nil
	}
	idx := g.emitted
	g.emitted++
	partSource := logicalplan.ScanSourceInfo{
		Format: g.source.Format,
		Paths:  stridePaths(g.source.Paths, idx, g.numPartitions),
	}
	b := task.NewBuilder(g.nodeID)
	b.Pipeline(task.ReadFile{Source: partSource, Schema: g.schema, Predicate: g.predicate})
	return openTaskItem(b), nil
}

func (g *scanGen) NotifyCompletion(handle.PartitionHandle, handle.PartitionMetadata) {}

func stridePaths(paths []string, idx, n int) []string {
	var out []string
	for i, p := range paths {
		if i%n == idx {
			out = append(out, p)
		}
	}
	return out
}

// inMemoryGen hands back partitions already resident in the scheduler's
// partition cache; there is nothing to schedule, so it completes on its
// first Poll.
type inMemoryGen struct {
	handles []handle.PartitionHandle
	done    bool
}

func newInMemoryGen(n *logicalplan.InMemoryScan) *inMemoryGen {
	return &inMemoryGen{handles: n.Handles}
}

func (g *inMemoryGen) Poll() (Item, error) {
	if g.done {
		return doneItem(), nil
	}
	g.done = true
	return doneItem(g.handles...), nil
}

func (g *inMemoryGen) NotifyCompletion(handle.PartitionHandle, handle.PartitionMetadata) {}
