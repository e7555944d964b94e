// Package capabilities defines the capability model a distributed
// worker advertises to internal/router's registry: what resource
// classes it can serve (plain CPU execution, GPU-accelerated kernels,
// a particular executor backend), not what SQL operations a table
// supports. internal/router matches a task's required capabilities
// against this set the same way the teacher's router package matches a
// query's required capabilities against a registered engine's.
package capabilities

import (
	"fmt"
	"strings"
)

// Capability represents one resource class a worker can serve.
type Capability string

const (
	// CapabilityCPU is the baseline: every worker must advertise it.
	CapabilityCPU Capability = "CPU"

	// CapabilityGPU marks a worker with GPU-accelerated kernels
	// available, required by tasks whose ResourceRequest.GPU > 0.
	CapabilityGPU Capability = "GPU"

	// CapabilityHighMemory marks a worker provisioned for
	// large-partition tasks (joins, sorts) beyond the default per-task
	// memory budget.
	CapabilityHighMemory Capability = "HIGH_MEMORY"
)

// AllCapabilities returns all valid capabilities.
func AllCapabilities() []Capability {
	return []Capability{CapabilityCPU, CapabilityGPU, CapabilityHighMemory}
}

// IsValid checks if the capability is a known valid capability.
func (c Capability) IsValid() bool {
	for _, valid := range AllCapabilities() {
		if c == valid {
			return true
		}
	}
	return false
}

func (c Capability) String() string { return string(c) }

// ParseCapability parses a string into a Capability.
func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid capability: %s (valid: %v)", s, AllCapabilities())
	}
	return c, nil
}

// Set is a set of capabilities for efficient lookup, e.g. the
// capabilities a worker advertises or a task requires.
type Set map[Capability]struct{}

// NewSet creates a new Set from a slice of capabilities.
func NewSet(caps ...Capability) Set {
	set := make(Set, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has checks if the set contains the given capability.
func (s Set) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// HasAll reports whether s contains every capability in required.
func (s Set) HasAll(required Set) bool {
	for c := range required {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// Add adds a capability to the set.
func (s Set) Add(c Capability) { s[c] = struct{}{} }

// Slice returns the capabilities as a slice, in no particular order.
func (s Set) Slice() []Capability {
	result := make([]Capability, 0, len(s))
	for c := range s {
		result = append(result, c)
	}
	return result
}

// RequiredFor derives the capability set a task.ResourceRequest demands:
// GPU>0 requires CapabilityGPU, and a memory request above
// highMemoryThreshold requires CapabilityHighMemory. Every task
// implicitly requires CapabilityCPU.
func RequiredFor(cpu, gpu float64, memoryBytes, highMemoryThreshold int64) Set {
	req := NewSet(CapabilityCPU)
	if gpu > 0 {
		req.Add(CapabilityGPU)
	}
	if memoryBytes > highMemoryThreshold {
		req.Add(CapabilityHighMemory)
	}
	return req
}
