package task

import "testing"

func TestResourceRequestFuseTakesMaxCPUGPUAndSumsMemory(t *testing.T) {
	a := ResourceRequest{CPU: 2, GPU: 0, MemoryBytes: 100}
	b := ResourceRequest{CPU: 1, GPU: 1, MemoryBytes: 50}
	fused := a.Fuse(b)
	if fused.CPU != 2 {
		t.Errorf("CPU = %v, want 2 (max)", fused.CPU)
	}
	if fused.GPU != 1 {
		t.Errorf("GPU = %v, want 1 (max)", fused.GPU)
	}
	if fused.MemoryBytes != 150 {
		t.Errorf("MemoryBytes = %v, want 150 (sum)", fused.MemoryBytes)
	}
}

func TestResourceRequestFitsWithin(t *testing.T) {
	cap := ResourceRequest{CPU: 4, GPU: 0, MemoryBytes: 1 << 30}
	if !(ResourceRequest{CPU: 4, MemoryBytes: 1 << 30}).FitsWithin(cap) {
		t.Error("a request exactly at cap should fit")
	}
	if (ResourceRequest{CPU: 5}).FitsWithin(cap) {
		t.Error("a request above cap should not fit")
	}
}
