package task

import (
	"context"

	"github.com/canonica-labs/distframe/internal/partition"
)

// RunChain executes instrs in order against exec, feeding each
// instruction's outputs as the next instruction's inputs. Shared by
// internal/scheduler's LocalWorkerPool and internal/distworker's remote
// worker server so a fused task runs identically in-process or on a
// remote worker. Zero instructions is an identity pass-through: a
// coalesce/shuffle singleton group that skipped adding a merge
// instruction returns its inputs unchanged.
func RunChain(ctx context.Context, exec Executor, instrs []Instruction, inputs []partition.Partition) ([]partition.Partition, error) {
	if len(instrs) == 0 {
		return inputs, nil
	}
	current := inputs
	for _, instr := range instrs {
		outs, err := instr.Run(ctx, exec, current)
		if err != nil {
			return nil, err
		}
		current = outs
	}
	return current, nil
}
