package alloc

import "unsafe"

// tagSize is the number of bytes the tag occupies at the start of a block.
const tagSize = unsafe.Sizeof(Tag(0))

// headerOffset returns the distance between the start of a tagged block and
// the payload it carries: the smallest multiple of align that can hold the
// tag, so the payload keeps the alignment the caller asked for. Allocate and
// Deallocate must compute the same offset from the same alignment.
func headerOffset(align uintptr) uintptr {
	return (tagSize + align - 1) &^ (align - 1)
}

// validAlign reports whether align is a non-zero power of two.
func validAlign(align uintptr) bool {
	return align != 0 && align&(align-1) == 0
}

func writeTag(base unsafe.Pointer, tag Tag) {
	*(*Tag)(base) = tag
}

func readTag(base unsafe.Pointer) Tag {
	return *(*Tag)(base)
}
