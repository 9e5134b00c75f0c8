package tracking

import (
	"sync"

	"github.com/sarchlab/memtrace/stacktrace"
)

// A Tracker is the dispatcher's sink: it resolves the call stack of each
// tracked allocation to a task and records the block's size against that
// task. Deallocations are attributed through an address map to the task
// that owned the block, no matter which task is running when the block is
// freed.
type Tracker struct {
	registry *Registry
	resolver *stacktrace.Resolver
	capture  func() []string

	mu     sync.Mutex
	byAddr map[uintptr]attribution
}

type attribution struct {
	task TaskID
	size uintptr
}

// NewTracker creates a Tracker that attributes allocations through registry
// using resolver.
func NewTracker(
	registry *Registry,
	resolver *stacktrace.Resolver,
) *Tracker {
	return &Tracker{
		registry: registry,
		resolver: resolver,
		capture: func() []string {
			return stacktrace.Capture(2)
		},
		byAddr: make(map[uintptr]attribution),
	}
}

// TrackAllocate resolves the current call stack to a task and records the
// new block against it. A stack that resolves to no task means no
// attribution is possible; the block is simply not tracked.
func (t *Tracker) TrackAllocate(addr, size uintptr) {
	path, ok := t.resolver.Resolve(t.capture())
	if !ok {
		return
	}

	id := t.registry.Resolve(path)
	t.registry.RecordUsage(id, int64(size))

	t.mu.Lock()
	t.byAddr[addr] = attribution{task: id, size: size}
	t.mu.Unlock()
}

// TrackDeallocate charges the freed block back to the task that owned it.
// Blocks that were never attributed are ignored.
func (t *Tracker) TrackDeallocate(addr, _ uintptr) {
	t.mu.Lock()
	a, ok := t.byAddr[addr]
	if ok {
		delete(t.byAddr, addr)
	}
	t.mu.Unlock()

	if !ok {
		return
	}

	t.registry.RecordUsage(a.task, -int64(a.size))
}

// TrackedBlocks returns the number of live attributed blocks.
func (t *Tracker) TrackedBlocks() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.byAddr)
}
