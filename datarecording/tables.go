package datarecording

// Table names used by the usage recorder and the readers.
const (
	TaskTableName    = "tasks"
	UsageTableName   = "usage_events"
	StatsTableName   = "allocator_stats"
	RunInfoTableName = "run_info"
)

// TaskEntry is one row of the task table.
type TaskEntry struct {
	ID      uint64
	Path    string
	IsAsync bool
}

// UsageEntry is one row of the usage-event table. Total is the task's
// tracked byte count after the adjustment; Time is in unix microseconds.
type UsageEntry struct {
	TaskID uint64
	Delta  int64
	Total  uint64
	Time   int64
}

// StatsEntry is one snapshot row of a concrete allocator's counters.
type StatsEntry struct {
	Tag            string
	Allocs         uint64
	Frees          uint64
	BytesAllocated uint64
	BytesFreed     uint64
	Time           int64
}

// RunInfoEntry is one property of the profiling run, recorded once at
// session start.
type RunInfoEntry struct {
	Property string
	Value    string
}
