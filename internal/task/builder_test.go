package task

import (
	"testing"

	"github.com/canonica-labs/distframe/internal/handle"
)

func TestNewBuilderNumOutputsDefaultsToInputCount(t *testing.T) {
	h1, h2 := handle.NewPartitionHandle(), handle.NewPartitionHandle()
	b := NewBuilder("node-1", h1, h2)
	if got := b.NumOutputs(); got != 2 {
		t.Errorf("NumOutputs() with no instructions = %d, want 2 (echoes input count)", got)
	}
}

func TestPipelineNumOutputsFollowsLastInstruction(t *testing.T) {
	h := handle.NewPartitionHandle()
	b := NewBuilder("node-1", h)
	b.Pipeline(LocalLimit{Num: 10})
	if got := b.NumOutputs(); got != 1 {
		t.Errorf("NumOutputs() after LocalLimit = %d, want 1", got)
	}

	b2 := NewBuilder("node-1", h)
	b2.Pipeline(FanoutHash{NumPartitions: 4})
	if got := b2.NumOutputs(); got != 4 {
		t.Errorf("NumOutputs() after FanoutHash{NumPartitions: 4} = %d, want 4", got)
	}
}

func TestPipelineFusesResourceRequests(t *testing.T) {
	h := handle.NewPartitionHandle()
	b := NewBuilder("node-1", h)
	b.Pipeline(Filter{}).Pipeline(Join{})
	pt := b.FinalizeSingleOutput()
	if pt.Resource.MemoryBytes != (256 << 20) {
		t.Errorf("fused MemoryBytes = %d, want %d (Filter contributes 0, Join 256MiB)", pt.Resource.MemoryBytes, 256<<20)
	}
}

func TestFinalizeSingleOutputAllocatesFreshHandles(t *testing.T) {
	h := handle.NewPartitionHandle()
	b := NewBuilder("node-1", h)
	pt := b.FinalizeSingleOutput()

	if len(pt.Outputs) != 1 || pt.Outputs[0].IsZero() {
		t.Fatalf("FinalizeSingleOutput() outputs = %v, want 1 non-zero handle", pt.Outputs)
	}
	if pt.Outputs[0] == h {
		t.Error("the output handle should never alias an input handle")
	}
	if len(pt.Inputs) != 1 || pt.Inputs[0] != h {
		t.Errorf("Inputs = %v, want [%v]", pt.Inputs, h)
	}
	if pt.State != StateCreated {
		t.Errorf("a freshly finalized task should start in StateCreated, got %v", pt.State)
	}
}

func TestFinalizeMultiOutputAllocatesNDistinctHandles(t *testing.T) {
	h := handle.NewPartitionHandle()
	b := NewBuilder("node-1", h)
	b.Pipeline(FanoutRandom{NumPartitions: 3})
	pt := b.FinalizeMultiOutput(3)

	if len(pt.Outputs) != 3 {
		t.Fatalf("Outputs = %v, want 3 handles", pt.Outputs)
	}
	seen := map[handle.PartitionHandle]bool{}
	for _, h := range pt.Outputs {
		if seen[h] {
			t.Fatal("FinalizeMultiOutput produced a duplicate handle")
		}
		seen[h] = true
	}
}
