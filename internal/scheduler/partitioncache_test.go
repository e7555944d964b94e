package scheduler

import (
	"testing"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
)

type fakePartition struct{ rows int64 }

func (fakePartition) Schema() logicalplan.Schema { return logicalplan.Schema{} }
func (f fakePartition) NumRows() int64           { return f.rows }
func (fakePartition) SizeBytes() int64           { return 0 }
func (fakePartition) MinMax(string) (handle.MinMax, bool) { return handle.MinMax{}, false }

func TestPartitionCacheInsertAndGet(t *testing.T) {
	c := NewPartitionCache()
	h := handle.NewPartitionHandle()
	c.Insert(h, fakePartition{rows: 10}, handle.PartitionMetadata{NumRows: 10})

	p, ok := c.Get(h)
	if !ok {
		t.Fatal("Get should find the inserted handle")
	}
	if p.NumRows() != 10 {
		t.Errorf("NumRows() = %d, want 10", p.NumRows())
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestPartitionCacheResolveFailsOnMissingHandle(t *testing.T) {
	c := NewPartitionCache()
	known := handle.NewPartitionHandle()
	c.Insert(known, fakePartition{rows: 1}, handle.PartitionMetadata{NumRows: 1})

	if _, ok := c.Resolve([]handle.PartitionHandle{known, handle.NewPartitionHandle()}); ok {
		t.Error("Resolve should fail when any handle is missing")
	}

	parts, ok := c.Resolve([]handle.PartitionHandle{known})
	if !ok || len(parts) != 1 {
		t.Fatalf("Resolve([known]) = %v, %v", parts, ok)
	}
}

func TestPartitionCacheEvictRemovesEntry(t *testing.T) {
	c := NewPartitionCache()
	h := handle.NewPartitionHandle()
	c.Insert(h, fakePartition{}, handle.PartitionMetadata{})
	c.Evict(h)
	if _, ok := c.Get(h); ok {
		t.Error("Get after Evict should report absence")
	}
	if c.Size() != 0 {
		t.Errorf("Size() after Evict = %d, want 0", c.Size())
	}
}
