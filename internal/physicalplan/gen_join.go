package physicalplan

import (
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/task"
)

// joinGen pairs the left and right children's output partitions
// positionally: partition i of the left side is joined with partition i
// of the right side. This assumes both sides arrive co-partitioned on
// the join keys; neither this generator nor any optimizer rule inserts
// a Repartition to make them so.
type joinGen struct {
	nodeID              string
	left, right         PhysicalPlan
	leftKeys, rightKeys logicalplan.ExpressionList
	how                 logicalplan.JoinHow
	leftPending         []handle.PartitionHandle
	rightPending        []handle.PartitionHandle
	leftDone, rightDone bool
	// completed tracks handles the scheduler has confirmed Done (via
	// NotifyCompletion), as opposed to merely finalized. A join task may
	// only be built once both sides of its pair are in this set, or the
	// scheduler would dispatch it in the same wave as its inputs, before
	// PartitionCache has anything to resolve them to.
	completed map[handle.PartitionHandle]struct{}
}

func newJoinGen(nodeID string, left, right PhysicalPlan, leftKeys, rightKeys logicalplan.ExpressionList, how logicalplan.JoinHow) *joinGen {
	return &joinGen{nodeID: nodeID, left: left, right: right, leftKeys: leftKeys, rightKeys: rightKeys, how: how, completed: map[handle.PartitionHandle]struct{}{}}
}

func (g *joinGen) Poll() (Item, error) {
	if len(g.leftPending) > 0 && len(g.rightPending) > 0 {
		lh := g.leftPending[0]
		rh := g.rightPending[0]
		_, lok := g.completed[lh]
		_, rok := g.completed[rh]
		if !lok || !rok {
			return suspendItem(), nil
		}
		g.leftPending = g.leftPending[1:]
		g.rightPending = g.rightPending[1:]
		delete(g.completed, lh)
		delete(g.completed, rh)
		b := task.NewBuilder(g.nodeID, lh, rh)
		b.Pipeline(task.Join{LeftKeys: g.leftKeys, RightKeys: g.rightKeys, How: g.how})
		return openTaskItem(b), nil
	}

	if !g.leftDone && len(g.leftPending) == 0 {
		item, err := g.left.Poll()
		if err != nil {
			return Item{}, err
		}
		switch item.Kind {
		case ItemOpenTask:
			t := item.Builder.FinalizeSingleOutput()
			g.leftPending = append(g.leftPending, t.Outputs...)
			return taskItem(t), nil
		case ItemTask:
			g.leftPending = append(g.leftPending, item.Task.Outputs...)
			return item, nil
		case ItemDone:
			g.leftDone = true
			g.leftPending = append(g.leftPending, item.Results...)
		default:
			return item, nil
		}
	}

	if !g.rightDone && len(g.rightPending) == 0 {
		item, err := g.right.Poll()
		if err != nil {
			return Item{}, err
		}
		switch item.Kind {
		case ItemOpenTask:
			t := item.Builder.FinalizeSingleOutput()
			g.rightPending = append(g.rightPending, t.Outputs...)
			return taskItem(t), nil
		case ItemTask:
			g.rightPending = append(g.rightPending, item.Task.Outputs...)
			return item, nil
		case ItemDone:
			g.rightDone = true
			g.rightPending = append(g.rightPending, item.Results...)
		default:
			return item, nil
		}
	}

	if g.leftDone && g.rightDone && len(g.leftPending) == 0 && len(g.rightPending) == 0 {
		return doneItem(), nil
	}
	return suspendItem(), nil
}

func (g *joinGen) NotifyCompletion(h handle.PartitionHandle, meta handle.PartitionMetadata) {
	g.completed[h] = struct{}{}
	g.left.NotifyCompletion(h, meta)
	g.right.NotifyCompletion(h, meta)
}
