package router

import (
	"testing"

	"github.com/canonica-labs/distframe/internal/capabilities"
)

func TestEligibleFiltersByCapabilityAndAvailability(t *testing.T) {
	r := NewWorkerRegistry()
	r.Register(&Worker{Addr: "cpu-1", Capabilities: capabilities.NewSet(capabilities.CapabilityCPU), Available: true, Priority: 5})
	r.Register(&Worker{Addr: "gpu-1", Capabilities: capabilities.NewSet(capabilities.CapabilityCPU, capabilities.CapabilityGPU), Available: true, Priority: 1})
	r.Register(&Worker{Addr: "gpu-2-down", Capabilities: capabilities.NewSet(capabilities.CapabilityCPU, capabilities.CapabilityGPU), Available: false, Priority: 0})

	got, err := r.Eligible(capabilities.NewSet(capabilities.CapabilityCPU, capabilities.CapabilityGPU))
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}
	if len(got) != 1 || got[0] != "gpu-1" {
		t.Fatalf("Eligible() = %v, want [gpu-1]", got)
	}
}

func TestEligibleOrdersByPriority(t *testing.T) {
	r := NewWorkerRegistry()
	r.Register(&Worker{Addr: "low-priority", Capabilities: capabilities.NewSet(capabilities.CapabilityCPU), Available: true, Priority: 9})
	r.Register(&Worker{Addr: "high-priority", Capabilities: capabilities.NewSet(capabilities.CapabilityCPU), Available: true, Priority: 1})

	got, err := r.Eligible(capabilities.NewSet(capabilities.CapabilityCPU))
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}
	if len(got) != 2 || got[0] != "high-priority" || got[1] != "low-priority" {
		t.Fatalf("Eligible() = %v, want [high-priority low-priority]", got)
	}
}

func TestEligibleReturnsWorkerUnavailableWhenNoneQualify(t *testing.T) {
	r := NewWorkerRegistry()
	r.Register(&Worker{Addr: "cpu-only", Capabilities: capabilities.NewSet(capabilities.CapabilityCPU), Available: true})

	if _, err := r.Eligible(capabilities.NewSet(capabilities.CapabilityGPU)); err == nil {
		t.Fatal("expected error when no worker has the required capability")
	}
}

func TestSetAvailabilityRemovesWorkerFromEligible(t *testing.T) {
	r := NewWorkerRegistry()
	r.Register(&Worker{Addr: "w1", Capabilities: capabilities.NewSet(capabilities.CapabilityCPU), Available: true})

	r.SetAvailability("w1", false)
	if _, err := r.Eligible(capabilities.NewSet(capabilities.CapabilityCPU)); err == nil {
		t.Fatal("expected error after marking the only worker unavailable")
	}
}
