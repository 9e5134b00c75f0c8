package alloc

import "sync/atomic"

// A StatCounter is a lock-free event counter.
type StatCounter struct {
	v atomic.Uint64
}

// Inc adds n to the counter.
func (c *StatCounter) Inc(n uint64) {
	c.v.Add(n)
}

// Get returns the current count.
func (c *StatCounter) Get() uint64 {
	return c.v.Load()
}

// Stats aggregates the activity of one concrete allocator. All counters only
// grow; in-use figures are derived when a snapshot is taken.
type Stats struct {
	allocs         StatCounter
	frees          StatCounter
	bytesAllocated StatCounter
	bytesFreed     StatCounter
}

func (s *Stats) recordAllocate(size uintptr) {
	s.allocs.Inc(1)
	s.bytesAllocated.Inc(uint64(size))
}

func (s *Stats) recordDeallocate(size uintptr) {
	s.frees.Inc(1)
	s.bytesFreed.Inc(uint64(size))
}

// A StatsSnapshot is a point-in-time copy of one allocator's counters.
type StatsSnapshot struct {
	Tag            string `json:"tag"`
	Allocs         uint64 `json:"allocs"`
	Frees          uint64 `json:"frees"`
	BytesAllocated uint64 `json:"bytes_allocated"`
	BytesFreed     uint64 `json:"bytes_freed"`
	BytesInUse     uint64 `json:"bytes_in_use"`
	BlocksInUse    uint64 `json:"blocks_in_use"`
}

// Snapshot reads the counters. Counters advance while the snapshot is taken,
// so the derived in-use figures saturate at zero rather than wrapping.
func (s *Stats) Snapshot(tag Tag) StatsSnapshot {
	snapshot := StatsSnapshot{
		Tag:            tag.String(),
		Allocs:         s.allocs.Get(),
		Frees:          s.frees.Get(),
		BytesAllocated: s.bytesAllocated.Get(),
		BytesFreed:     s.bytesFreed.Get(),
	}

	if snapshot.BytesAllocated > snapshot.BytesFreed {
		snapshot.BytesInUse = snapshot.BytesAllocated - snapshot.BytesFreed
	}

	if snapshot.Allocs > snapshot.Frees {
		snapshot.BlocksInUse = snapshot.Allocs - snapshot.Frees
	}

	return snapshot
}
