// Package physicalplan implements the physical plan factory and its
// generators (§4.C/D): the coroutine-style core that turns a logical
// plan into a stream of PartitionTasks without ever touching partition
// payloads. Every generator is driven by repeated calls to Poll, which
// plays the role of Python generator.send(None)/next() in the system
// this engine's execution model is drawn from.
package physicalplan

import (
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/task"
)

// ItemKind tags what a Poll call yielded.
type ItemKind int

const (
	// ItemTask is a fully finalized task ready for the scheduler to
	// admit and dispatch.
	ItemTask ItemKind = iota
	// ItemOpenTask is a task builder the generator has pipelined
	// instructions onto but not yet finalized; a parent generator may
	// pipeline further instructions onto it, and the scheduler finalizes
	// it as a final output partition when it reaches the root, mirroring
	// the daft SingleOutputPartitionTask "open" state.
	ItemOpenTask
	// ItemSuspend means the generator has no work ready right now and
	// is waiting on an input it has already requested; the runner
	// should poll other generators and retry this one later.
	ItemSuspend
	// ItemDone means the generator has produced every output partition
	// it ever will; Results holds any final handles it did not yield as
	// an ItemOpenTask (the global limit's outputs, an in-memory scan's
	// cached handles). Most generators return none.
	ItemDone
)

// Item is the tagged union every PhysicalPlan.Poll call returns.
type Item struct {
	Kind    ItemKind
	Task    *task.PartitionTask
	Builder *task.Builder
	Results []handle.PartitionHandle
}

func taskItem(t *task.PartitionTask) Item      { return Item{Kind: ItemTask, Task: t} }
func openTaskItem(b *task.Builder) Item        { return Item{Kind: ItemOpenTask, Builder: b} }
func suspendItem() Item                        { return Item{Kind: ItemSuspend} }
func doneItem(results ...handle.PartitionHandle) Item {
	return Item{Kind: ItemDone, Results: results}
}

// PhysicalPlan is the generator interface every node in the physical
// plan tree implements. Poll is called repeatedly by the scheduler's
// pull phase; NotifyCompletion feeds back a task's result as soon as
// the scheduler learns about it. Join, coalesce and the range shuffle
// use it only to learn which inputs are done; the global limit also
// uses the reported row counts to size its remaining take.
type PhysicalPlan interface {
	Poll() (Item, error)
	NotifyCompletion(h handle.PartitionHandle, meta handle.PartitionMetadata)
}

// Tightenable is implemented by generators that can shrink their
// remaining demand once they learn how many rows upstream tasks
// actually produced, replacing the generator .send(n) used by
// local_limit in the reference implementation.
type Tightenable interface {
	Tighten(n int64)
}
