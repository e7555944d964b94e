package partition

import (
	"testing"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
)

type fakePartition struct {
	schema    logicalplan.Schema
	numRows   int64
	sizeBytes int64
	minMax    map[string]handle.MinMax
}

func (f fakePartition) Schema() logicalplan.Schema { return f.schema }
func (f fakePartition) NumRows() int64             { return f.numRows }
func (f fakePartition) SizeBytes() int64           { return f.sizeBytes }
func (f fakePartition) MinMax(column string) (handle.MinMax, bool) {
	mm, ok := f.minMax[column]
	return mm, ok
}

func TestMetadataCopiesRowAndByteCounts(t *testing.T) {
	p := fakePartition{numRows: 100, sizeBytes: 4096}
	md := Metadata(p)
	if md.NumRows != 100 {
		t.Errorf("NumRows = %d, want 100", md.NumRows)
	}
	if md.SizeBytes != 4096 {
		t.Errorf("SizeBytes = %d, want 4096", md.SizeBytes)
	}
}

func TestPartitionMinMaxReportsAbsence(t *testing.T) {
	p := fakePartition{minMax: map[string]handle.MinMax{"id": {Min: int64(1), Max: int64(9)}}}

	if mm, ok := p.MinMax("id"); !ok || mm.Min.(int64) != 1 || mm.Max.(int64) != 9 {
		t.Errorf("MinMax(id) = %+v, %v", mm, ok)
	}
	if _, ok := p.MinMax("missing"); ok {
		t.Error("MinMax(missing) should report absence")
	}
}
