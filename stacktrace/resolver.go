// Package stacktrace captures call stacks and reduces them to canonical
// call paths that identify profiled tasks.
package stacktrace

import (
	"runtime"
	"strings"
	"sync"
)

// maxDepth is the number of frames a call path can carry. Deeper stacks are
// cut at the leaf end.
const maxDepth = 20

// A CallPath is an ordered root-to-leaf sequence of cleaned frame names.
type CallPath []string

// String joins the path segments with semicolons, the folded-stack form.
func (p CallPath) String() string {
	return strings.Join(p, ";")
}

var pcPool = sync.Pool{
	New: func() any {
		buf := make([]uintptr, 64)
		return &buf
	},
}

// Capture returns the symbolized function names of the calling goroutine's
// stack, innermost first. skip drops that many additional frames beyond
// Capture itself.
func Capture(skip int) []string {
	bufPtr := pcPool.Get().(*[]uintptr)
	pcs := *bufPtr

	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	names := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			names = append(names, frame.Function)
		}

		if !more {
			break
		}
	}

	pcPool.Put(bufPtr)

	return names
}

// A Resolver reduces a captured backtrace to a canonical call path. Frames
// up to and including the start marker belong to the capture machinery and
// are skipped; the end marker and everything beyond it is spawn boilerplate
// and is dropped; noise patterns are skipped wherever they appear.
type Resolver struct {
	startMarker string
	endMarker   string
	noise       []string
}

// defaultNoise lists scaffolding frames that never identify user work.
var defaultNoise = []string{
	"runtime.",
	"runtime/",
	"testing.",
	"sync.(*Pool)",
	"github.com/sarchlab/memtrace/alloc.",
	"github.com/sarchlab/memtrace/stacktrace.",
	"github.com/sarchlab/memtrace/tracking.",
}

// NewResolver creates a Resolver with the default markers and noise list.
func NewResolver() *Resolver {
	return &Resolver{
		endMarker: "runtime.goexit",
		noise:     defaultNoise,
	}
}

// WithStartMarker sets the frame that marks the top of the capture
// machinery. Frames are discarded until a frame containing the marker is
// seen; that frame is discarded too.
func (r *Resolver) WithStartMarker(marker string) *Resolver {
	r.startMarker = marker
	return r
}

// WithEndMarker sets the frame that marks the bottom of the useful stack.
// The marker frame and everything below it is dropped.
func (r *Resolver) WithEndMarker(marker string) *Resolver {
	r.endMarker = marker
	return r
}

// WithNoisePatterns replaces the noise pattern list.
func (r *Resolver) WithNoisePatterns(patterns []string) *Resolver {
	r.noise = patterns
	return r
}

// Resolve reduces frames, given innermost first, to a canonical root-to-leaf
// call path. It returns false when no frame survives filtering, in which
// case no task can be matched and the caller must skip attribution.
func (r *Resolver) Resolve(frames []string) (CallPath, bool) {
	leafToRoot := make([]string, 0, maxDepth)
	started := r.startMarker == ""

	for _, frame := range frames {
		if !started {
			if strings.Contains(frame, r.startMarker) &&
				!strings.Contains(frame, closureMarker) {
				started = true
			}

			continue
		}

		if r.endMarker != "" && strings.Contains(frame, r.endMarker) {
			break
		}

		if r.isNoise(frame) {
			continue
		}

		name := CleanName(frame)
		if name == "" {
			continue
		}

		// Compiler-generated closure chains show up as repeats of one
		// logical call. Only consecutive repeats are dropped; genuine
		// recursion through other frames is kept.
		if len(leafToRoot) > 0 && leafToRoot[len(leafToRoot)-1] == name {
			continue
		}

		leafToRoot = append(leafToRoot, name)
		if len(leafToRoot) == maxDepth {
			break
		}
	}

	if len(leafToRoot) == 0 {
		return nil, false
	}

	path := make(CallPath, len(leafToRoot))
	for i, name := range leafToRoot {
		path[len(leafToRoot)-1-i] = name
	}

	return path, true
}

func (r *Resolver) isNoise(frame string) bool {
	for _, pattern := range r.noise {
		if strings.Contains(frame, pattern) {
			return true
		}
	}

	return false
}
