// Package partition defines the data-plane interface the physical
// execution core treats as an external collaborator (§4.C/D): it never
// constructs or inspects partition payloads itself, only calls through
// this interface. Concrete implementations live in internal/colpartition
// (arrow-backed, in-process) and are produced by internal/workerexec.
package partition

import (
	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
)

// Partition is one unit of columnar data plus the statistics the
// optimizer and scheduler need without touching the payload itself.
type Partition interface {
	Schema() logicalplan.Schema
	NumRows() int64
	SizeBytes() int64
	// MinMax returns the inclusive bounds of column, if tracked.
	MinMax(column string) (handle.MinMax, bool)
}

// Metadata summarizes a Partition the way a worker reports it back to
// the scheduler, independent of the payload ever crossing that boundary.
func Metadata(p Partition) handle.PartitionMetadata {
	return handle.PartitionMetadata{
		NumRows:   p.NumRows(),
		SizeBytes: p.SizeBytes(),
	}
}
