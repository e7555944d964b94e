package task

import "math"

// ResourceRequest is the CPU/GPU/memory footprint a task or instruction
// needs while running. The scheduler's admission controller compares
// these against its configured caps before dispatching a task.
type ResourceRequest struct {
	CPU         float64
	GPU         float64
	MemoryBytes int64
}

// Fuse combines two requests the way pipelining two instructions into
// one task does: CPU and GPU take the element-wise max (the instructions
// run sequentially within the task, never concurrently, so the peak
// governs), while memory sums (intermediate buffers from both stages can
// be live at once during the handoff).
func (r ResourceRequest) Fuse(o ResourceRequest) ResourceRequest {
	return ResourceRequest{
		CPU:         math.Max(r.CPU, o.CPU),
		GPU:         math.Max(r.GPU, o.GPU),
		MemoryBytes: r.MemoryBytes + o.MemoryBytes,
	}
}

// FitsWithin reports whether r can be admitted under the remaining
// capacity cap.
func (r ResourceRequest) FitsWithin(cap ResourceRequest) bool {
	return r.CPU <= cap.CPU && r.GPU <= cap.GPU && r.MemoryBytes <= cap.MemoryBytes
}
