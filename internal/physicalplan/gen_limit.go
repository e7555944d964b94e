package physicalplan

import (
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/task"
)

// localLimitGen caps every partition independently at num rows. It
// implements Tightenable, whose Tighten lowers num for the tasks it has
// not yet yielded; globalLimitGen does not call it and instead applies
// its own LocalLimit(remaining) to each completed partition.
type localLimitGen struct {
	nodeID    string
	child     PhysicalPlan
	num       int64
	pending   []handle.PartitionHandle
	childDone bool
}

func newLocalLimitGen(nodeID string, child PhysicalPlan, num int64) *localLimitGen {
	return &localLimitGen{nodeID: nodeID, child: child, num: num}
}

func (g *localLimitGen) Tighten(n int64) {
	if n < g.num {
		g.num = n
	}
}

func (g *localLimitGen) Poll() (Item, error) {
	if len(g.pending) > 0 {
		h := g.pending[0]
		g.pending = g.pending[1:]
		b := task.NewBuilder(g.nodeID, h)
		b.Pipeline(task.LocalLimit{Num: g.num})
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
		item.Builder.Pipeline(task.LocalLimit{Num: g.num})
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

func (g *localLimitGen) NotifyCompletion(h handle.PartitionHandle, meta handle.PartitionMetadata) {
	g.child.NotifyCompletion(h, meta)
}

// globalLimitGen caps the total row count across every output
// partition at num, stopping the pull from child as soon as the cap is
// reached even if child has more partitions to give. It must finalize
// every task eagerly (never pass an open builder further up) because it
// has to observe each partition's actual row count before deciding
// whether to request another.
//
// Once remaining hits zero it stops asking child for anything further
// (the generator's own form of "cancel all outstanding in-flights": it
// never builds another real task) and instead pads out the rest of the
// declared output partitions with LocalLimit(0) tasks that reuse an
// already-completed handle, per spec.md §4.D/§8 S5.
type globalLimitGen struct {
	nodeID        string
	child         PhysicalPlan
	remaining     int64
	numPartitions int
	pending       []handle.PartitionHandle
	inFlight      map[handle.PartitionHandle]bool
	childDone     bool

	produced    int
	results     []handle.PartitionHandle
	reuseHandle handle.PartitionHandle
	haveReuse   bool
}

func newGlobalLimitGen(nodeID string, child PhysicalPlan, n int64, numPartitions int) *globalLimitGen {
	return &globalLimitGen{nodeID: nodeID, child: child, remaining: n, numPartitions: numPartitions, inFlight: map[handle.PartitionHandle]bool{}}
}

func (g *globalLimitGen) Poll() (Item, error) {
	if g.remaining <= 0 {
		return g.drain()
	}
	if len(g.pending) > 0 {
		h := g.pending[0]
		g.pending = g.pending[1:]
		b := task.NewBuilder(g.nodeID, h)
		b.Pipeline(task.LocalLimit{Num: g.remaining})
		t := b.FinalizeSingleOutput()
		g.inFlight[t.Outputs[0]] = true
		g.produced++
		g.results = append(g.results, t.Outputs[0])
		return taskItem(t), nil
	}
	if g.childDone {
		return doneItem(g.results...), nil
	}
	item, err := g.child.Poll()
	if err != nil {
		return Item{}, err
	}
	switch item.Kind {
	case ItemOpenTask:
		item.Builder.Pipeline(task.LocalLimit{Num: g.remaining})
		t := item.Builder.FinalizeSingleOutput()
		g.inFlight[t.Outputs[0]] = true
		g.produced++
		g.results = append(g.results, t.Outputs[0])
		return taskItem(t), nil
	case ItemTask:
		for _, h := range item.Task.Outputs {
			g.inFlight[h] = true
		}
		g.produced += len(item.Task.Outputs)
		g.results = append(g.results, item.Task.Outputs...)
		return item, nil
	case ItemDone:
		g.childDone = true
		g.pending = append(g.pending, item.Results...)
		return suspendItem(), nil
	default:
		return item, nil
	}
}

// drain pads the remaining declared output partitions with zero-row
// fillers once the cap has been met, reusing the last handle this
// generator saw complete rather than reading any fresh input.
func (g *globalLimitGen) drain() (Item, error) {
	if g.produced >= g.numPartitions || !g.haveReuse {
		return doneItem(g.results...), nil
	}
	b := task.NewBuilder(g.nodeID, g.reuseHandle)
	b.Pipeline(task.LocalLimit{Num: 0})
	t := b.FinalizeSingleOutput()
	g.produced++
	g.results = append(g.results, t.Outputs[0])
	return taskItem(t), nil
}

func (g *globalLimitGen) NotifyCompletion(h handle.PartitionHandle, meta handle.PartitionMetadata) {
	g.child.NotifyCompletion(h, meta)
	if g.inFlight[h] {
		delete(g.inFlight, h)
		g.remaining -= meta.NumRows
		g.reuseHandle = h
		g.haveReuse = true
	}
}
