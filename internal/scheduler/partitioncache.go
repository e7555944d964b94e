package scheduler

import (
	"sync"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/partition"
)

// cacheEntry pairs a partition payload with the metadata a worker
// reported alongside it.
type cacheEntry struct {
	payload  partition.Partition
	metadata handle.PartitionMetadata
}

// PartitionCache maps partition handles to their materialized payload
// and metadata. Per §5, the cache is mutated only by the scheduler's
// own goroutine; workers hand results back through a WorkerPool future
// instead of writing here directly.
type PartitionCache struct {
	mu      sync.RWMutex
	entries map[handle.PartitionHandle]cacheEntry
}

// NewPartitionCache creates an empty cache.
func NewPartitionCache() *PartitionCache {
	return &PartitionCache{entries: make(map[handle.PartitionHandle]cacheEntry)}
}

// Insert records a partition's payload and metadata under h. Called
// only from the scheduler's await phase after a task completes.
func (c *PartitionCache) Insert(h handle.PartitionHandle, p partition.Partition, meta handle.PartitionMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[h] = cacheEntry{payload: p, metadata: meta}
}

// Get resolves a handle to its partition payload.
func (c *PartitionCache) Get(h handle.PartitionHandle) (partition.Partition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[h]
	return e.payload, ok
}

// Metadata resolves a handle to its reported metadata.
func (c *PartitionCache) Metadata(h handle.PartitionHandle) (handle.PartitionMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[h]
	return e.metadata, ok
}

// Resolve looks up every handle in hs, erroring via ok=false if any is
// missing from the cache (a generator asked for an input before its
// producing task completed, which would be a scheduler bug).
func (c *PartitionCache) Resolve(hs []handle.PartitionHandle) ([]partition.Partition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]partition.Partition, len(hs))
	for i, h := range hs {
		e, ok := c.entries[h]
		if !ok {
			return nil, false
		}
		out[i] = e.payload
	}
	return out, true
}

// Evict drops a handle's entry, used once nothing downstream can still
// reference it (not currently exercised by the scheduler's simple
// keep-everything-until-done strategy, but kept for a future
// memory-pressure eviction policy).
func (c *PartitionCache) Evict(h handle.PartitionHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, h)
}

// Size reports how many live entries the cache holds.
func (c *PartitionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
