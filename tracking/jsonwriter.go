package tracking

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tebeka/atexit"
)

// JSONUsageWriter can write usage events into json format.
type JSONUsageWriter struct {
	w          io.Writer
	lock       sync.Mutex
	firstEvent bool
}

// RegisterTask does nothing; the events carry the task path already.
func (t *JSONUsageWriter) RegisterTask(_ Task) {
}

// RecordUsage appends one event to the JSON array.
func (t *JSONUsageWriter) RecordUsage(event UsageEvent) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.firstEvent {
		t.firstEvent = false
	} else {
		_, err := t.w.Write([]byte(",\n"))
		if err != nil {
			panic(err)
		}
	}

	b, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}

	_, err = t.w.Write(b)
	if err != nil {
		panic(err)
	}
}

func (t *JSONUsageWriter) finish() {
	t.lock.Lock()
	defer t.lock.Unlock()

	_, err := t.w.Write([]byte("\n]"))
	if err != nil {
		panic(err)
	}
}

// NewJSONUsageWriter creates a new JSONUsageWriter that records into a
// generated file in the working directory.
func NewJSONUsageWriter() *JSONUsageWriter {
	filename := "memtrace_usage_" + GetRunIDGenerator().Generate() + ".json"
	f, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	fmt.Fprintf(os.Stderr, "Recording usage events in %s\n", filename)

	_, err = f.Write([]byte("[\n"))
	if err != nil {
		panic(err)
	}

	t := &JSONUsageWriter{
		w:          f,
		firstEvent: true,
	}

	atexit.Register(t.finish)

	return t
}
