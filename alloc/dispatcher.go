package alloc

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"
)

// largeBlockSize is the size at which the dispatcher reports deallocations
// on stderr when verbose diagnostics are on.
const largeBlockSize = 128 * 1024

// A Dispatcher is the routing allocator. Every request consults the mode
// controller for the active tag, forwards to the concrete allocator that tag
// selects, and stamps the tag into the block header, so that deallocation
// can route to the serving allocator no matter which tag is active by then.
//
// Blocks served on the tracking route are reported to the tracker sink for
// task attribution. Nothing reachable from Allocate, Deallocate, or
// Reallocate panics: a failed allocation returns nil and a corrupt header
// falls open to the system route.
type Dispatcher struct {
	mode       *ModeController
	heap       *pinnedHeap
	allocators [numTags]*heapAllocator

	sink      atomic.Value // TrackerSink
	threshold uintptr
	verbose   bool
}

// NewDispatcher creates a dispatcher with its own backing heap and mode
// controller. defaultTag is the ambient tag before any scoped region is
// entered.
func NewDispatcher(defaultTag Tag) *Dispatcher {
	heap := newPinnedHeap()

	d := &Dispatcher{
		mode: NewModeController(defaultTag),
		heap: heap,
	}

	for tag := Tag(0); tag < numTags; tag++ {
		d.allocators[tag] = newHeapAllocator(heap)
	}

	return d
}

// Mode returns the dispatcher's mode controller.
func (d *Dispatcher) Mode() *ModeController {
	return d.mode
}

// AttachTracker installs the sink that receives tracking-route allocation
// events. Attaching is atomic, so a sink can be installed while allocations
// are in flight.
func (d *Dispatcher) AttachTracker(sink TrackerSink) {
	d.sink.Store(&sink)
}

func (d *Dispatcher) currentSink() TrackerSink {
	v := d.sink.Load()
	if v == nil {
		return nil
	}

	return *v.(*TrackerSink)
}

// Allocate serves a block of size bytes aligned to align under the currently
// active tag. It returns nil when the block cannot be served.
func (d *Dispatcher) Allocate(size, align uintptr) unsafe.Pointer {
	if size == 0 || !validAlign(align) {
		return nil
	}

	tag := d.mode.Current()
	offset := headerOffset(align)

	base := d.allocatorFor(tag).Allocate(offset+size, align)
	if base == nil {
		return nil
	}

	writeTag(base, tag)
	ptr := unsafe.Add(base, offset)

	if tag == TagTracking {
		d.trackAllocate(uintptr(ptr), size)
	}

	return ptr
}

// Deallocate returns a block to the allocator that served it. The serving
// allocator is identified by the tag stored in the block header, never by
// the currently active tag.
func (d *Dispatcher) Deallocate(ptr unsafe.Pointer, size, align uintptr) {
	if ptr == nil || !validAlign(align) {
		return
	}

	offset := headerOffset(align)
	base := unsafe.Add(ptr, -int(offset))
	tag := readTag(base)

	if !tag.Valid() {
		// The header was overwritten. Taking the process down from inside
		// an allocator is not an option, so hand the block to the system
		// route and report on the side channel.
		fmt.Fprintf(os.Stderr,
			"memtrace: corrupt header for block %#x, freeing as System\n",
			uintptr(ptr))
		tag = TagSystem
	}

	if d.verbose && size >= largeBlockSize {
		fmt.Fprintf(os.Stderr,
			"memtrace: %s allocator served %d-byte block %#x\n",
			tag, size, uintptr(ptr))
	}

	if tag == TagTracking {
		d.trackDeallocate(uintptr(ptr), size)
	}

	d.allocatorFor(tag).Deallocate(base, offset+size, align)
}

// Reallocate resizes a block. The new block is allocated under the currently
// active tag; the old block is freed through its stored tag. A nil ptr
// behaves as Allocate; a zero newSize frees the block and returns nil.
func (d *Dispatcher) Reallocate(
	ptr unsafe.Pointer,
	size, align, newSize uintptr,
) unsafe.Pointer {
	if ptr == nil {
		return d.Allocate(newSize, align)
	}

	if newSize == 0 {
		d.Deallocate(ptr, size, align)
		return nil
	}

	newPtr := d.Allocate(newSize, align)
	if newPtr == nil {
		return nil
	}

	n := size
	if newSize < n {
		n = newSize
	}
	copy(
		unsafe.Slice((*byte)(newPtr), n),
		unsafe.Slice((*byte)(ptr), n),
	)

	d.Deallocate(ptr, size, align)

	return newPtr
}

// Stats returns a snapshot of each concrete allocator's counters.
func (d *Dispatcher) Stats() []StatsSnapshot {
	snapshots := make([]StatsSnapshot, 0, numTags)
	for tag := Tag(0); tag < numTags; tag++ {
		snapshots = append(snapshots, d.allocators[tag].stats.Snapshot(tag))
	}

	return snapshots
}

// StatsOf returns a snapshot of one concrete allocator's counters.
func (d *Dispatcher) StatsOf(tag Tag) StatsSnapshot {
	return d.allocatorFor(tag).stats.Snapshot(tag)
}

// LiveBlocks returns the number of blocks currently held by the backing
// heap across both routes.
func (d *Dispatcher) LiveBlocks() int {
	return d.heap.liveBlocks()
}

func (d *Dispatcher) allocatorFor(tag Tag) *heapAllocator {
	switch tag {
	case TagTracking:
		return d.allocators[TagTracking]
	case TagSystem:
		return d.allocators[TagSystem]
	default:
		return d.allocators[TagSystem]
	}
}

func (d *Dispatcher) trackAllocate(addr, size uintptr) {
	sink := d.currentSink()
	if sink == nil || size < d.threshold {
		return
	}

	g := d.mode.Enter(TagSystem)
	sink.TrackAllocate(addr, size)
	g.Exit()
}

func (d *Dispatcher) trackDeallocate(addr, size uintptr) {
	sink := d.currentSink()
	if sink == nil || size < d.threshold {
		return
	}

	g := d.mode.Enter(TagSystem)
	sink.TrackDeallocate(addr, size)
	g.Exit()
}

var dispatcherMutex sync.Mutex
var dispatcherInstantiated bool
var dispatcher *Dispatcher
var dispatcherThreshold uintptr
var dispatcherVerbose bool

// UseTrackingThreshold sets the minimum payload size, in bytes, that the
// process-wide dispatcher reports for attribution. It must be called before
// the dispatcher is first used.
func UseTrackingThreshold(bytes uintptr) {
	dispatcherMutex.Lock()
	defer dispatcherMutex.Unlock()

	if dispatcherInstantiated {
		log.Panic("cannot configure the dispatcher after using it")
	}

	dispatcherThreshold = bytes
}

// UseVerboseDiagnostics makes the process-wide dispatcher report large
// deallocations on stderr. It must be called before the dispatcher is first
// used.
func UseVerboseDiagnostics() {
	dispatcherMutex.Lock()
	defer dispatcherMutex.Unlock()

	if dispatcherInstantiated {
		log.Panic("cannot configure the dispatcher after using it")
	}

	dispatcherVerbose = true
}

// GetDispatcher returns the process-wide dispatcher, creating it on first
// use. The ambient tag starts as System; a profiling session switches it to
// Tracking for its lifetime.
func GetDispatcher() *Dispatcher {
	if dispatcherInstantiated {
		return dispatcher
	}

	dispatcherMutex.Lock()
	if dispatcherInstantiated {
		dispatcherMutex.Unlock()
		return dispatcher
	}

	dispatcher = NewDispatcher(TagSystem)
	dispatcher.threshold = dispatcherThreshold
	dispatcher.verbose = dispatcherVerbose
	dispatcherInstantiated = true
	dispatcherMutex.Unlock()

	return dispatcher
}
