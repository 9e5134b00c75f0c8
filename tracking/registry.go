package tracking

import (
	"sort"
	"sync"
	"time"

	"github.com/sarchlab/memtrace/stacktrace"
)

// A Registry owns all the tasks of one profiling session. It maps canonical
// call paths to stable task IDs, first seen wins, and accumulates a memory
// usage total per task. All methods are safe for concurrent use.
type Registry struct {
	*HookableBase

	mu     sync.Mutex
	byPath map[string]TaskID
	byID   map[TaskID]*Task
	idGen  taskIDGenerator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		HookableBase: NewHookableBase(),
		byPath:       make(map[string]TaskID),
		byID:         make(map[TaskID]*Task),
	}
}

// Resolve returns the task ID for path, creating the task the first time
// the path is seen. Identical paths always resolve to the same ID within
// one session; distinct paths never share an ID.
func (r *Registry) Resolve(path stacktrace.CallPath) TaskID {
	return r.resolve(path.String(), false)
}

// ResolveAsync is Resolve for paths that identify async units of work.
// The async flag is fixed when the task is created; later calls with a
// different flag do not change it.
func (r *Registry) ResolveAsync(path stacktrace.CallPath) TaskID {
	return r.resolve(path.String(), true)
}

func (r *Registry) resolve(pathStr string, isAsync bool) TaskID {
	r.mu.Lock()

	if id, ok := r.byPath[pathStr]; ok {
		r.mu.Unlock()
		return id
	}

	id := r.idGen.generate()
	task := &Task{
		ID:      id,
		Path:    pathStr,
		IsAsync: isAsync,
	}
	r.byPath[pathStr] = id
	r.byID[id] = task
	registered := *task

	r.mu.Unlock()

	r.InvokeHook(HookCtx{
		Domain: r,
		Pos:    HookPosTaskRegister,
		Item:   registered,
	})

	return id
}

// RecordUsage adjusts a task's tracked memory total by delta bytes. The
// total saturates at zero: imperfect alloc/dealloc pairing never drives it
// negative. An unknown ID means no attribution is possible and the call is
// a no-op.
func (r *Registry) RecordUsage(id TaskID, delta int64) {
	r.mu.Lock()

	task, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	if delta >= 0 {
		task.MemoryBytes += uint64(delta)
		task.AllocCount++
	} else if dec := uint64(-delta); dec > task.MemoryBytes {
		task.MemoryBytes = 0
	} else {
		task.MemoryBytes -= dec
	}

	event := UsageEvent{
		TaskID: id,
		Path:   task.Path,
		Delta:  delta,
		Total:  task.MemoryBytes,
		Time:   time.Now().UnixMicro(),
	}

	r.mu.Unlock()

	r.InvokeHook(HookCtx{
		Domain: r,
		Pos:    HookPosUsageRecord,
		Item:   event,
	})
}

// UsageOf returns a task's tracked memory total. The second return value is
// false when the ID is unknown.
func (r *Registry) UsageOf(id TaskID) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.byID[id]
	if !ok {
		return 0, false
	}

	return task.MemoryBytes, true
}

// PathOf returns a task's canonical call path. The second return value is
// false when the ID is unknown.
func (r *Registry) PathOf(id TaskID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.byID[id]
	if !ok {
		return "", false
	}

	return task.Path, true
}

// TaskCount returns the number of tasks registered so far.
func (r *Registry) TaskCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byID)
}

// Tasks returns a snapshot of all tasks, ordered by ID.
func (r *Registry) Tasks() []Task {
	r.mu.Lock()

	tasks := make([]Task, 0, len(r.byID))
	for _, task := range r.byID {
		tasks = append(tasks, *task)
	}

	r.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})

	return tasks
}
