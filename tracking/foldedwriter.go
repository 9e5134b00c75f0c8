package tracking

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tebeka/atexit"
)

// Version is the version stamped into profile headers.
const Version = "0.1.0"

// A FoldedWriter is a usage tracer that records the memory profile in the
// folded-stack text format: a header block, then one
// "path +bytes" or "path -bytes" line per usage event. The output feeds
// flamegraph tooling directly, or the selftime converter first.
type FoldedWriter struct {
	path string
	file *os.File

	lock sync.Mutex
	buf  *bufio.Writer
}

// NewFoldedWriter creates a FoldedWriter that records into the file at
// path. An empty path generates a name in the working directory.
func NewFoldedWriter(path string) *FoldedWriter {
	return &FoldedWriter{
		path: path,
	}
}

// Init creates the profile file and writes the header block. An existing
// file is never overwritten.
func (t *FoldedWriter) Init() {
	if t.path == "" {
		t.path = "memtrace_" + GetRunIDGenerator().Generate() + ".folded"
	}

	_, err := os.Stat(t.path)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", t.path))
	}

	file, err := os.Create(t.path)
	if err != nil {
		panic(err)
	}
	t.file = file
	t.buf = bufio.NewWriter(file)

	t.writeHeader()

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

func (t *FoldedWriter) writeHeader() {
	fmt.Fprintf(t.buf, "# Memory Profile\n")
	fmt.Fprintf(t.buf, "# Script: %s\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(t.buf, "# Started: %d\n", time.Now().UnixMicro())
	fmt.Fprintf(t.buf, "# Version: %s\n", Version)
	fmt.Fprintf(t.buf, "\n")
}

// RegisterTask does nothing; the folded format has no task records, only
// stack lines.
func (t *FoldedWriter) RegisterTask(_ Task) {
}

// RecordUsage writes one stack line. Positive deltas carry a leading plus
// sign so allocation and deallocation lines stay distinguishable.
func (t *FoldedWriter) RecordUsage(event UsageEvent) {
	t.lock.Lock()
	defer t.lock.Unlock()

	fmt.Fprintf(t.buf, "%s %+d\n", event.Path, event.Delta)
}

// Flush forces buffered lines to disk.
func (t *FoldedWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	err := t.buf.Flush()
	if err != nil {
		panic(err)
	}
}
