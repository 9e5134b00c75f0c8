package tracking

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var runIDGeneratorMutex sync.Mutex
var runIDGeneratorInstantiated bool
var runIDGenerator RunIDGenerator

// RunIDGenerator generates identifiers for profiling runs and for output
// artifacts that need a unique name.
type RunIDGenerator interface {
	// Generate an ID
	Generate() string
}

// UseSequentialRunIDGenerator configures the run ID generator to generate
// IDs in sequential. Sequential IDs keep output filenames deterministic,
// which the tests rely on.
func UseSequentialRunIDGenerator() {
	if runIDGeneratorInstantiated {
		log.Panic("cannot change run id generator type after using it")
	}

	runIDGeneratorMutex.Lock()
	if runIDGeneratorInstantiated {
		log.Panic("cannot change run id generator type after using it")
	}

	runIDGenerator = &sequentialRunIDGenerator{}
	runIDGeneratorInstantiated = true

	runIDGeneratorMutex.Unlock()
}

// UseXIDRunIDGenerator configures the run ID generator to generate globally
// unique IDs. The IDs generated will not be deterministic anymore.
func UseXIDRunIDGenerator() {
	if runIDGeneratorInstantiated {
		log.Panic("cannot change run id generator type after using it")
	}

	runIDGeneratorMutex.Lock()
	if runIDGeneratorInstantiated {
		log.Panic("cannot change run id generator type after using it")
	}

	runIDGenerator = &xidRunIDGenerator{}
	runIDGeneratorInstantiated = true

	runIDGeneratorMutex.Unlock()
}

// GetRunIDGenerator returns the run ID generator used in the current
// process.
func GetRunIDGenerator() RunIDGenerator {
	if runIDGeneratorInstantiated {
		return runIDGenerator
	}

	runIDGeneratorMutex.Lock()
	if runIDGeneratorInstantiated {
		runIDGeneratorMutex.Unlock()
		return runIDGenerator
	}

	runIDGenerator = &xidRunIDGenerator{}
	runIDGeneratorInstantiated = true
	runIDGeneratorMutex.Unlock()

	return runIDGenerator
}

type sequentialRunIDGenerator struct {
	nextID uint64
}

func (g *sequentialRunIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	id := strconv.FormatUint(idNumber, 10)
	return id
}

type xidRunIDGenerator struct {
}

func (g xidRunIDGenerator) Generate() string {
	return xid.New().String()
}

// taskIDGenerator issues the sequential task IDs a registry hands out.
// Task IDs are always sequential so that identical runs resolve identical
// paths to identical IDs.
type taskIDGenerator struct {
	nextID uint64
}

func (g *taskIDGenerator) generate() TaskID {
	return TaskID(atomic.AddUint64(&g.nextID, 1))
}
