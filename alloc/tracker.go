package alloc

// A TrackerSink receives the allocation events the dispatcher observes on
// the tracking route. The tracking package implements it with call-stack
// resolution and task attribution; the allocator layer knows nothing about
// tasks.
//
// Both methods run with the System tag active and must complete quickly:
// they sit on the hot path of every tracked allocation.
type TrackerSink interface {
	// TrackAllocate reports a block that was just served. addr and size
	// describe the payload the caller sees, not the tagged raw block.
	TrackAllocate(addr uintptr, size uintptr)

	// TrackDeallocate reports a block about to be returned. It fires before
	// the block is handed back, while the address is still live.
	TrackDeallocate(addr uintptr, size uintptr)
}
