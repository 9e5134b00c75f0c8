package alloc

import (
	"fmt"
	"os"
	"sync"
	"unsafe"
)

// An Allocator hands out raw memory blocks. Implementations return nil when
// a request cannot be served; nothing on the allocation path panics.
type Allocator interface {
	// Allocate returns a pointer to a block of at least size bytes, aligned
	// to align, or nil if the block cannot be served.
	Allocate(size, align uintptr) unsafe.Pointer

	// Deallocate returns a block previously obtained from Allocate on the
	// same allocator, with the same size and alignment.
	Deallocate(ptr unsafe.Pointer, size, align uintptr)
}

// pinnedHeap is the backing store for both concrete allocators. The Go
// collector reclaims anything it cannot see a reference to, so every block
// handed out as a raw pointer is pinned in an address-keyed map until it is
// deallocated. The map also rejects frees of addresses it never served.
type pinnedHeap struct {
	mu     sync.Mutex
	blocks map[uintptr][]byte
}

func newPinnedHeap() *pinnedHeap {
	return &pinnedHeap{
		blocks: make(map[uintptr][]byte),
	}
}

// Allocate carves an aligned block out of a fresh buffer and pins it.
func (h *pinnedHeap) Allocate(size, align uintptr) unsafe.Pointer {
	if size == 0 || !validAlign(align) {
		return nil
	}

	buf := make([]byte, size+align)

	base := unsafe.Pointer(&buf[0])
	pad := uintptr(0)
	if rem := uintptr(base) & (align - 1); rem != 0 {
		pad = align - rem
	}
	aligned := unsafe.Add(base, pad)

	h.mu.Lock()
	h.blocks[uintptr(aligned)] = buf
	h.mu.Unlock()

	return aligned
}

// Deallocate unpins a block. An address the heap never served is reported on
// stderr and ignored; a double free looks the same way. Aborting the host
// process from inside an allocator is never an option here.
func (h *pinnedHeap) Deallocate(ptr unsafe.Pointer, size, align uintptr) {
	addr := uintptr(ptr)

	h.mu.Lock()
	_, ok := h.blocks[addr]
	if ok {
		delete(h.blocks, addr)
	}
	h.mu.Unlock()

	if !ok {
		fmt.Fprintf(os.Stderr,
			"memtrace: free of unknown address %#x (%d bytes), ignored\n",
			addr, size)
	}
}

// liveBlocks returns the number of blocks currently pinned.
func (h *pinnedHeap) liveBlocks() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.blocks)
}

// heapAllocator is a concrete allocator: a counted route into the backing
// heap. The dispatcher owns one instance per tag. The routes are identical
// memory-wise; what sets the tracking route apart is that the dispatcher
// reports its blocks to the tracker sink.
type heapAllocator struct {
	heap  *pinnedHeap
	stats Stats
}

func newHeapAllocator(heap *pinnedHeap) *heapAllocator {
	return &heapAllocator{heap: heap}
}

func (a *heapAllocator) Allocate(size, align uintptr) unsafe.Pointer {
	ptr := a.heap.Allocate(size, align)
	if ptr == nil {
		return nil
	}

	a.stats.recordAllocate(size)

	return ptr
}

func (a *heapAllocator) Deallocate(ptr unsafe.Pointer, size, align uintptr) {
	a.heap.Deallocate(ptr, size, align)
	a.stats.recordDeallocate(size)
}
