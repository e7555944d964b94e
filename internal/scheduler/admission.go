package scheduler

import (
	"sync"

	enginerrors "github.com/canonica-labs/distframe/internal/errors"
	"github.com/canonica-labs/distframe/internal/task"
)

// AdmissionController caps aggregate in-flight CPU, GPU and memory
// usage. Its counters are guarded by mu: the scheduler calls TryAdmit
// from its own loop and Release both there and from dispatch goroutines.
type AdmissionController struct {
	mu sync.Mutex

	capCPU float64
	capGPU float64
	capMem int64

	usedCPU float64
	usedGPU float64
	usedMem int64
}

// NewAdmissionController builds a controller with the given hard caps.
func NewAdmissionController(capCPU, capGPU float64, capMem int64) *AdmissionController {
	return &AdmissionController{capCPU: capCPU, capGPU: capGPU, capMem: capMem}
}

// FitsAlone reports whether req could ever be admitted, even with
// nothing else in flight. A task that fails this check is a fatal
// ResourceExhausted error (§7), not something to wait out.
func (a *AdmissionController) FitsAlone(req task.ResourceRequest) bool {
	return req.CPU <= a.capCPU && req.GPU <= a.capGPU && req.MemoryBytes <= a.capMem
}

// TryAdmit admits req if doing so keeps every resource dimension within
// its cap, incrementing the in-flight counters on success.
func (a *AdmissionController) TryAdmit(req task.ResourceRequest) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.usedCPU+req.CPU > a.capCPU {
		return false
	}
	if a.usedGPU+req.GPU > a.capGPU {
		return false
	}
	if a.usedMem+req.MemoryBytes > a.capMem {
		return false
	}
	a.usedCPU += req.CPU
	a.usedGPU += req.GPU
	a.usedMem += req.MemoryBytes
	return true
}

// Release returns req's resources to the pool once its task completes,
// fails, or is cancelled.
func (a *AdmissionController) Release(req task.ResourceRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.usedCPU -= req.CPU
	a.usedGPU -= req.GPU
	a.usedMem -= req.MemoryBytes
}

// InFlight reports the current usage snapshot, used for wave log entries
// and the trace counter event.
func (a *AdmissionController) InFlight() (cpu, gpu float64, mem int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usedCPU, a.usedGPU, a.usedMem
}

// Check validates req against the hard caps and returns a structured
// ErrResourceExceeded if it can never be admitted.
func (a *AdmissionController) Check(req task.ResourceRequest) error {
	if a.FitsAlone(req) {
		return nil
	}
	a.mu.Lock()
	capCPU, capGPU, capMem := a.capCPU, a.capGPU, a.capMem
	a.mu.Unlock()
	return enginerrors.NewResourceExceeded(
		enginerrors.ResourceSummary{CPU: req.CPU, GPU: req.GPU, MemoryBytes: req.MemoryBytes},
		enginerrors.ResourceSummary{CPU: capCPU, GPU: capGPU, MemoryBytes: capMem},
	)
}
