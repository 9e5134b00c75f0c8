package alloc

// A Tag identifies which concrete allocator serves an allocation. The tag is
// stamped into the block header at allocation time and read back at
// deallocation time, so a block always returns to the allocator that served
// it, no matter which tag is active by then.
type Tag uint8

const (
	// TagTracking routes requests through the tracking allocator, which
	// attributes each block to a task.
	TagTracking Tag = iota

	// TagSystem routes requests straight to the system allocator, bypassing
	// all tracking.
	TagSystem

	numTags
)

// Valid reports whether t is one of the defined tags. A tag read back from a
// block header can fail this check if the header was overwritten.
func (t Tag) Valid() bool {
	return t < numTags
}

func (t Tag) String() string {
	switch t {
	case TagTracking:
		return "Tracking"
	case TagSystem:
		return "System"
	default:
		return "Invalid"
	}
}
