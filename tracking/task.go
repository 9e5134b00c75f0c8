// Package tracking attributes allocation events to logical tasks identified
// by their canonical call paths.
package tracking

// A TaskID identifies a task within one profiling session. IDs start at 1;
// 0 is never issued and marks "no task".
type TaskID uint64

// A Task is a logical unit of profiled work: a function invocation or an
// async operation instance, identified by its canonical call path. Tasks
// are created the first time their path is observed and live until the
// registry is torn down at session end.
type Task struct {
	ID          TaskID `json:"id"`
	Path        string `json:"path"`
	IsAsync     bool   `json:"is_async"`
	MemoryBytes uint64 `json:"memory_bytes"`
	AllocCount  uint64 `json:"alloc_count"`
}

// A UsageEvent describes one adjustment of a task's tracked memory total.
type UsageEvent struct {
	TaskID TaskID `json:"task_id"`
	Path   string `json:"path"`
	Delta  int64  `json:"delta"`
	Total  uint64 `json:"total"`
	Time   int64  `json:"time"`
}

// TaskFilter is a function that can filter interesting tasks. If this
// function returns true, the task is considered useful.
type TaskFilter func(t Task) bool
