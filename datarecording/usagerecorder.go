package datarecording

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sarchlab/memtrace/alloc"
	"github.com/sarchlab/memtrace/tracking"
)

// A UsageRecorder is a usage tracer that stores tasks and usage events
// through a DataRecorder backend, SQLite by default.
type UsageRecorder struct {
	backend DataRecorder
}

// NewUsageRecorder creates a UsageRecorder on top of backend and creates
// the tables it writes to.
func NewUsageRecorder(backend DataRecorder) *UsageRecorder {
	r := &UsageRecorder{backend: backend}

	backend.CreateTable(TaskTableName, TaskEntry{})
	backend.CreateTable(UsageTableName, UsageEntry{})
	backend.CreateTable(StatsTableName, StatsEntry{})
	backend.CreateTable(RunInfoTableName, RunInfoEntry{})

	return r
}

// RecordRunInfo stores the identifying properties of one profiling run.
func (r *UsageRecorder) RecordRunInfo(runID string) {
	r.backend.InsertData(RunInfoTableName, RunInfoEntry{
		Property: "run_id", Value: runID,
	})
	r.backend.InsertData(RunInfoTableName, RunInfoEntry{
		Property: "script", Value: filepath.Base(os.Args[0]),
	})
	r.backend.InsertData(RunInfoTableName, RunInfoEntry{
		Property: "started",
		Value:    time.Now().Format(time.RFC3339),
	})
	r.backend.InsertData(RunInfoTableName, RunInfoEntry{
		Property: "version", Value: tracking.Version,
	})
}

// RegisterTask stores one row in the task table.
func (r *UsageRecorder) RegisterTask(task tracking.Task) {
	r.backend.InsertData(TaskTableName, TaskEntry{
		ID:      uint64(task.ID),
		Path:    task.Path,
		IsAsync: task.IsAsync,
	})
}

// RecordUsage stores one row in the usage-event table.
func (r *UsageRecorder) RecordUsage(event tracking.UsageEvent) {
	r.backend.InsertData(UsageTableName, UsageEntry{
		TaskID: uint64(event.TaskID),
		Delta:  event.Delta,
		Total:  event.Total,
		Time:   event.Time,
	})
}

// RecordStats stores a snapshot row per concrete allocator.
func (r *UsageRecorder) RecordStats(snapshots []alloc.StatsSnapshot) {
	now := time.Now().UnixMicro()

	for _, s := range snapshots {
		r.backend.InsertData(StatsTableName, StatsEntry{
			Tag:            s.Tag,
			Allocs:         s.Allocs,
			Frees:          s.Frees,
			BytesAllocated: s.BytesAllocated,
			BytesFreed:     s.BytesFreed,
			Time:           now,
		})
	}
}

// Flush forces buffered rows into the database.
func (r *UsageRecorder) Flush() {
	r.backend.Flush()
}
