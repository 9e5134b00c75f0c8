package alloc

import "sync/atomic"

// A ModeController tracks which tag is ambiently active. Allocator hooks read
// it on the hot path of every allocation, so the state is a single atomic
// word and every transition is one compare-and-swap. No lock is taken and no
// code path panics.
//
// The controller is shared by all goroutines. Go has no per-goroutine
// ambient storage, so unlike a thread-local design, concurrent scoped
// regions interleave on the same word: a region exited on one goroutine can
// observe a tag installed by another. Within a single goroutine, Enter/Exit
// pairs nest strictly.
type ModeController struct {
	current atomic.Uint32
}

// NewModeController creates a controller with defaultTag active.
func NewModeController(defaultTag Tag) *ModeController {
	c := &ModeController{}
	c.current.Store(uint32(defaultTag))

	return c
}

// Current returns the ambiently active tag.
func (c *ModeController) Current() Tag {
	return Tag(c.current.Load())
}

// Enter installs tag as the active tag and returns a Guard that restores the
// prior tag on Exit. Entering the tag that is already active returns an
// inert guard: only the call that actually changed the tag restores it on
// exit. This is what keeps re-entered allocator hooks from restoring a stale
// mode.
func (c *ModeController) Enter(tag Tag) Guard {
	for {
		prev := Tag(c.current.Load())
		if prev == tag {
			return Guard{}
		}

		if c.current.CompareAndSwap(uint32(prev), uint32(tag)) {
			return Guard{
				controller: c,
				installed:  tag,
				prev:       prev,
				active:     true,
			}
		}
	}
}

// Run executes fn with tag active and restores the prior tag afterwards,
// including when fn panics.
func (c *ModeController) Run(tag Tag, fn func()) {
	g := c.Enter(tag)
	defer g.Exit()

	fn()
}

// A Guard restores the tag that was active when it was created. The zero
// Guard is inert.
type Guard struct {
	controller *ModeController
	installed  Tag
	prev       Tag
	active     bool
}

// Exit restores the prior tag. The restore is a compare-and-swap from the
// tag this guard installed: if another goroutine has changed the mode in the
// meantime, the state is left for that goroutine's guard to restore. A
// second Exit on the same guard is a no-op.
func (g *Guard) Exit() {
	if !g.active {
		return
	}
	g.active = false

	g.controller.current.CompareAndSwap(
		uint32(g.installed), uint32(g.prev))
}
