package tracking

import "sync"

// A UsageTracer observes registry activity: tasks being registered and
// memory usage being recorded against them. Tracers are attached through
// the registry's hooks and must be safe for concurrent invocation.
type UsageTracer interface {
	// RegisterTask is called once per task, when its call path is first
	// seen.
	RegisterTask(task Task)

	// RecordUsage is called every time a task's tracked total changes.
	RecordUsage(event UsageEvent)
}

// CollectUsage attaches a tracer to a registry so that it receives all
// registration and usage events from now on.
func CollectUsage(registry *Registry, tracer UsageTracer) {
	registry.AcceptHook(&usageTraceHook{tracer: tracer})
}

// CollectFilteredUsage attaches a tracer that only receives the tasks the
// filter accepts, and only the usage events of those tasks. Tasks the
// filter rejects are invisible to the tracer.
func CollectFilteredUsage(
	registry *Registry,
	tracer UsageTracer,
	filter TaskFilter,
) {
	registry.AcceptHook(&usageTraceHook{
		tracer:   tracer,
		filter:   filter,
		accepted: make(map[TaskID]bool),
	})
}

type usageTraceHook struct {
	tracer UsageTracer

	filter   TaskFilter
	mu       sync.Mutex
	accepted map[TaskID]bool
}

func (h *usageTraceHook) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosTaskRegister:
		task := ctx.Item.(Task)
		if !h.acceptTask(task) {
			return
		}

		h.tracer.RegisterTask(task)
	case HookPosUsageRecord:
		event := ctx.Item.(UsageEvent)
		if !h.acceptEvent(event) {
			return
		}

		h.tracer.RecordUsage(event)
	}
}

func (h *usageTraceHook) acceptTask(task Task) bool {
	if h.filter == nil {
		return true
	}

	if !h.filter(task) {
		return false
	}

	h.mu.Lock()
	h.accepted[task.ID] = true
	h.mu.Unlock()

	return true
}

func (h *usageTraceHook) acceptEvent(event UsageEvent) bool {
	if h.filter == nil {
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.accepted[event.TaskID]
}
