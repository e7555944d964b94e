package task

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/canonica-labs/distframe/internal/handle"
)

// State is a PartitionTask's position in its Created -> Dispatched ->
// Running -> {Done, Failed, Cancelled} lifecycle. Transitions are
// one-directional. Scheduler.Run tracks tasks through its own queues
// and does not update a task's State.
type State int

const (
	StateCreated State = iota
	StateDispatched
	StateRunning
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateDispatched:
		return "Dispatched"
	case StateRunning:
		return "Running"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s is one the scheduler will never transition out of.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

var transitions = map[State]map[State]bool{
	StateCreated:    {StateDispatched: true, StateCancelled: true},
	StateDispatched: {StateRunning: true, StateCancelled: true, StateFailed: true},
	StateRunning:    {StateDone: true, StateFailed: true, StateCancelled: true},
}

// PartitionTask is one unit of scheduled work: a chain of fused
// Instructions to run, in order, against Inputs, producing Outputs.
// NodeID names the logical node this task was generated for, used only
// for tracing and diagnostics.
type PartitionTask struct {
	ID           uuid.UUID
	NodeID       string
	Instructions []Instruction
	Inputs       []handle.PartitionHandle
	Outputs      []handle.PartitionHandle
	Resource     ResourceRequest
	State        State
	Err          error
}

// Transition moves t to next, rejecting any edge not in the state
// machine's allowed-transition table.
func (t *PartitionTask) Transition(next State) error {
	allowed := transitions[t.State]
	if !allowed[next] {
		return fmt.Errorf("task %s: illegal transition %s -> %s", t.ID, t.State, next)
	}
	t.State = next
	return nil
}

// Fail records err and moves the task to StateFailed.
func (t *PartitionTask) Fail(err error) error {
	if transErr := t.Transition(StateFailed); transErr != nil {
		return transErr
	}
	t.Err = err
	return nil
}
