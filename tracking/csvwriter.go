package tracking

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

// CSVUsageWriter is a usage tracer that can store the usage events into a
// CSV file.
type CSVUsageWriter struct {
	path string
	file *os.File

	events     []UsageEvent
	bufferSize int
}

// NewCSVUsageWriter creates a new CSVUsageWriter.
func NewCSVUsageWriter(path string) *CSVUsageWriter {
	return &CSVUsageWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Init creates the usage csv file. If the file already exists, Init panics
// rather than overwriting recorded data.
func (t *CSVUsageWriter) Init() {
	if t.path == "" {
		t.path = "memtrace_usage_" + GetRunIDGenerator().Generate()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "TaskID, Path, Delta, Total, Time\n")

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// RegisterTask does nothing: the CSV file carries the path on every event
// line, so a separate task record is not needed.
func (t *CSVUsageWriter) RegisterTask(_ Task) {
}

// RecordUsage buffers one usage event for writing.
func (t *CSVUsageWriter) RecordUsage(event UsageEvent) {
	t.events = append(t.events, event)
	if len(t.events) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered events to the CSV file.
func (t *CSVUsageWriter) Flush() {
	for _, e := range t.events {
		fmt.Fprintf(t.file, "%d, %s, %d, %d, %d\n",
			e.TaskID,
			e.Path,
			e.Delta,
			e.Total,
			e.Time,
		)
	}

	t.events = nil
}
