package scheduler

import (
	"testing"

	"github.com/canonica-labs/distframe/internal/task"
)

func TestFitsAloneRejectsRequestsAboveAnyCap(t *testing.T) {
	a := NewAdmissionController(4, 0, 8<<30)
	if !a.FitsAlone(task.ResourceRequest{CPU: 4, MemoryBytes: 1 << 30}) {
		t.Error("a request exactly at cap should fit alone")
	}
	if a.FitsAlone(task.ResourceRequest{CPU: 5}) {
		t.Error("a request above the CPU cap should never fit alone")
	}
}

func TestTryAdmitTracksInFlightUsage(t *testing.T) {
	a := NewAdmissionController(4, 0, 8<<30)

	if !a.TryAdmit(task.ResourceRequest{CPU: 3}) {
		t.Fatal("expected the first admit to succeed")
	}
	if a.TryAdmit(task.ResourceRequest{CPU: 2}) {
		t.Fatal("a second admit that would exceed capCPU should be rejected")
	}

	cpu, _, _ := a.InFlight()
	if cpu != 3 {
		t.Errorf("InFlight() cpu = %v, want 3", cpu)
	}

	a.Release(task.ResourceRequest{CPU: 3})
	if !a.TryAdmit(task.ResourceRequest{CPU: 2}) {
		t.Fatal("expected admit to succeed after releasing the earlier request")
	}
}

func TestCheckReturnsResourceExceededOnlyWhenRequestCannotFitAlone(t *testing.T) {
	a := NewAdmissionController(4, 0, 8<<30)
	if err := a.Check(task.ResourceRequest{CPU: 2}); err != nil {
		t.Errorf("Check() of an in-bounds request should not error, got: %v", err)
	}
	if err := a.Check(task.ResourceRequest{CPU: 10}); err == nil {
		t.Error("Check() of a request exceeding capacity alone should error")
	}
}
