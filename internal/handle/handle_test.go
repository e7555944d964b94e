package handle

import "testing"

func TestNewPartitionHandleIsNeverZeroAndNeverRepeats(t *testing.T) {
	a := NewPartitionHandle()
	b := NewPartitionHandle()
	if a.IsZero() || b.IsZero() {
		t.Error("a freshly allocated handle should never report IsZero")
	}
	if a == b {
		t.Error("two calls to NewPartitionHandle should never collide")
	}
	if a.String() == b.String() {
		t.Error("String() should differ for distinct handles")
	}
}

func TestZeroValueHandleIsZero(t *testing.T) {
	var h PartitionHandle
	if !h.IsZero() {
		t.Error("the zero value PartitionHandle should report IsZero")
	}
}

func TestPartitionMetadataAddSumsRowsAndBytes(t *testing.T) {
	a := PartitionMetadata{NumRows: 10, SizeBytes: 100}
	b := PartitionMetadata{NumRows: 5, SizeBytes: 50}
	sum := a.Add(b)
	if sum.NumRows != 15 || sum.SizeBytes != 150 {
		t.Errorf("Add() = %+v, want NumRows=15 SizeBytes=150", sum)
	}
}
