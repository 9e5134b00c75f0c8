package tracking

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/memtrace/alloc"
	"github.com/sarchlab/memtrace/stacktrace"
)

// Environment variables read once when the first session begins. A .env
// file in the working directory is loaded first.
//
//	MEMTRACE_TRACK_THRESHOLD  minimum allocation size, in bytes, to track
//	MEMTRACE_PROFILE_PATH     folded profile output path
//	MEMTRACE_VERBOSE          report large deallocations on stderr
const (
	envTrackThreshold = "MEMTRACE_TRACK_THRESHOLD"
	envProfilePath    = "MEMTRACE_PROFILE_PATH"
	envVerbose        = "MEMTRACE_VERBOSE"
)

var configOnce sync.Once

// A Session ties the dispatcher, the call-stack resolver, the task
// registry, and the output writers into one profiling run. Begin switches
// the ambient mode to Tracking; End restores it and flushes the writers.
type Session struct {
	ID string

	registry   *Registry
	resolver   *stacktrace.Resolver
	tracker    *Tracker
	dispatcher *alloc.Dispatcher
	folded     *FoldedWriter

	guard alloc.Guard

	mu      sync.Mutex
	started bool
	ended   bool
}

// NewSession creates a Session with a fresh registry and the default
// resolver. Process-wide allocator configuration is applied from the
// environment the first time any session is created.
func NewSession() *Session {
	applyEnvConfig()

	registry := NewRegistry()
	resolver := stacktrace.NewResolver()

	s := &Session{
		ID:       GetRunIDGenerator().Generate(),
		registry: registry,
		resolver: resolver,
		tracker:  NewTracker(registry, resolver),
	}

	return s
}

func applyEnvConfig() {
	configOnce.Do(func() {
		// Missing .env files are fine; plain environment variables still
		// apply.
		_ = godotenv.Load()

		if v := os.Getenv(envTrackThreshold); v != "" {
			threshold, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr,
					"memtrace: bad %s value %q, ignored\n",
					envTrackThreshold, v)
			} else {
				alloc.UseTrackingThreshold(uintptr(threshold))
			}
		}

		if v := os.Getenv(envVerbose); v == "1" || v == "true" {
			alloc.UseVerboseDiagnostics()
		}
	})
}

// Registry returns the session's task registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Resolver returns the session's call-stack resolver, for marker and noise
// configuration before Begin.
func (s *Session) Resolver() *stacktrace.Resolver {
	return s.resolver
}

// Dispatcher returns the allocator dispatcher the session profiles. It is
// nil before Begin.
func (s *Session) Dispatcher() *alloc.Dispatcher {
	return s.dispatcher
}

// Begin wires the tracker into the process-wide dispatcher, opens the
// folded profile writer, and switches the ambient mode to Tracking.
// Beginning a session twice panics.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		panic("session already started")
	}
	s.started = true

	s.folded = NewFoldedWriter(os.Getenv(envProfilePath))
	s.folded.Init()
	CollectUsage(s.registry, s.folded)

	s.dispatcher = alloc.GetDispatcher()
	s.dispatcher.AttachTracker(s.tracker)
	s.guard = s.dispatcher.Mode().Enter(alloc.TagTracking)

	atexit.Register(s.End)
}

// End restores the ambient mode and flushes the writers. End is
// idempotent: the atexit hook and an explicit call can both run.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.ended {
		return
	}
	s.ended = true

	s.guard.Exit()
	s.folded.Flush()
}
