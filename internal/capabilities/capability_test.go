package capabilities

import "testing"

func TestRequiredForDerivesGPUAndHighMemory(t *testing.T) {
	req := RequiredFor(1, 1, 10<<30, 1<<30)
	if !req.Has(CapabilityCPU) || !req.Has(CapabilityGPU) || !req.Has(CapabilityHighMemory) {
		t.Fatalf("RequiredFor() = %v, want all three capabilities", req.Slice())
	}
}

func TestRequiredForPlainCPUTask(t *testing.T) {
	req := RequiredFor(1, 0, 1<<20, 1<<30)
	if !req.Has(CapabilityCPU) {
		t.Fatal("expected CapabilityCPU")
	}
	if req.Has(CapabilityGPU) || req.Has(CapabilityHighMemory) {
		t.Fatalf("RequiredFor() = %v, want only CPU", req.Slice())
	}
}

func TestParseCapabilityRejectsUnknown(t *testing.T) {
	if _, err := ParseCapability("bogus"); err == nil {
		t.Fatal("expected error for unknown capability")
	}
}

func TestSetHasAll(t *testing.T) {
	s := NewSet(CapabilityCPU, CapabilityGPU)
	if !s.HasAll(NewSet(CapabilityCPU)) {
		t.Fatal("expected HasAll(CPU) to be true")
	}
	if s.HasAll(NewSet(CapabilityHighMemory)) {
		t.Fatal("expected HasAll(HIGH_MEMORY) to be false")
	}
}
