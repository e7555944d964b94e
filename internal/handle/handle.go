// Package handle defines the stable identifiers the physical execution
// core passes around instead of real data. The core never touches
// partition payloads directly; it only ever holds a PartitionHandle plus
// the PartitionMetadata a worker reported back for it.
package handle

import "github.com/google/uuid"

// PartitionHandle is an opaque, stable identifier for a partition held in
// the scheduler's partition cache. Handles are generated once, when a
// task that will produce the partition is created, and are never reused.
type PartitionHandle uuid.UUID

// NewPartitionHandle allocates a fresh handle.
func NewPartitionHandle() PartitionHandle {
	return PartitionHandle(uuid.New())
}

// String renders the handle for logging and tracing.
func (h PartitionHandle) String() string {
	return uuid.UUID(h).String()
}

// IsZero reports whether h was never assigned.
func (h PartitionHandle) IsZero() bool {
	return uuid.UUID(h) == uuid.Nil
}

// MinMax holds the inclusive bounds of a column, opaque to the core.
type MinMax struct {
	Min any
	Max any
}

// PartitionMetadata is the statistics summary a worker reports alongside a
// completed partition's payload. The core only ever reasons about these
// fields; it never inspects the underlying data.
type PartitionMetadata struct {
	NumRows    int64
	SizeBytes  int64
	NullCounts map[string]int64 // column name -> null count, optional
	MinMax     map[string]MinMax // column name -> bounds, optional
}

// Add combines two metadata summaries, used when multiple partitions are
// fused into one task's resource request or reported together.
func (m PartitionMetadata) Add(o PartitionMetadata) PartitionMetadata {
	out := PartitionMetadata{
		NumRows:   m.NumRows + o.NumRows,
		SizeBytes: m.SizeBytes + o.SizeBytes,
	}
	return out
}
