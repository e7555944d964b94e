package task

import (
	"github.com/google/uuid"

	"github.com/canonica-labs/distframe/internal/handle"
)

// Builder accumulates instructions onto a fixed set of input handles
// before finalizing into one PartitionTask. Pipelining instructions
// (Filter then Project then LocalLimit, say) into a single task avoids
// materializing an intermediate partition for each step; the fused
// ResourceRequest is the element-wise max of CPU/GPU and the sum of
// memory across every instruction in the chain.
type Builder struct {
	nodeID       string
	inputs       []handle.PartitionHandle
	instructions []Instruction
	resource     ResourceRequest
}

// NewBuilder opens a task builder reading from inputs.
func NewBuilder(nodeID string, inputs ...handle.PartitionHandle) *Builder {
	return &Builder{nodeID: nodeID, inputs: inputs}
}

// Pipeline appends instr to the fusion chain and returns the builder for
// chaining, mirroring the teacher's fluent builder style.
func (b *Builder) Pipeline(instr Instruction) *Builder {
	b.instructions = append(b.instructions, instr)
	b.resource = b.resource.Fuse(instr.ResourceRequest())
	return b
}

// NumOutputs reports how many outputs finalizing now would produce,
// driven by the last instruction in the chain.
func (b *Builder) NumOutputs() int {
	if len(b.instructions) == 0 {
		return len(b.inputs)
	}
	return b.instructions[len(b.instructions)-1].NumOutputs(len(b.inputs))
}

// FinalizeSingleOutput closes the builder into a task expected to
// produce exactly one output partition.
func (b *Builder) FinalizeSingleOutput() *PartitionTask {
	return b.finalize(1)
}

// FinalizeMultiOutput closes the builder into a task expected to
// produce n output partitions (the fanout instruction family).
func (b *Builder) FinalizeMultiOutput(n int) *PartitionTask {
	return b.finalize(n)
}

func (b *Builder) finalize(numOutputs int) *PartitionTask {
	outputs := make([]handle.PartitionHandle, numOutputs)
	for i := range outputs {
		outputs[i] = handle.NewPartitionHandle()
	}
	return &PartitionTask{
		ID:           uuid.New(),
		NodeID:       b.nodeID,
		Instructions: append([]Instruction{}, b.instructions...),
		Inputs:       append([]handle.PartitionHandle{}, b.inputs...),
		Outputs:      outputs,
		Resource:     b.resource,
		State:        StateCreated,
	}
}
