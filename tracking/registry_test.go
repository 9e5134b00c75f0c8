package tracking

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memtrace/stacktrace"
)

var _ = Describe("Registry", func() {
	var (
		r *Registry
	)

	BeforeEach(func() {
		r = NewRegistry()
	})

	It("should resolve the same path to the same id", func() {
		path := stacktrace.CallPath{"main", "foo", "bar"}

		id1 := r.Resolve(path)
		id2 := r.Resolve(path)

		Expect(id1).To(Equal(id2))
		Expect(r.TaskCount()).To(Equal(1))
	})

	It("should resolve distinct paths to distinct ids", func() {
		id1 := r.Resolve(stacktrace.CallPath{"main", "foo"})
		id2 := r.Resolve(stacktrace.CallPath{"main", "bar"})

		Expect(id1).NotTo(Equal(id2))
	})

	It("should never issue id 0", func() {
		id := r.Resolve(stacktrace.CallPath{"main"})

		Expect(id).To(Equal(TaskID(1)))
	})

	It("should keep the async flag from the first sight", func() {
		path := stacktrace.CallPath{"main", "spawn"}

		id := r.ResolveAsync(path)
		r.Resolve(path)

		tasks := r.Tasks()
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].ID).To(Equal(id))
		Expect(tasks[0].IsAsync).To(BeTrue())
	})

	It("should accumulate usage", func() {
		id := r.Resolve(stacktrace.CallPath{"main"})

		r.RecordUsage(id, 100)
		r.RecordUsage(id, 28)

		usage, ok := r.UsageOf(id)
		Expect(ok).To(BeTrue())
		Expect(usage).To(Equal(uint64(128)))
	})

	It("should saturate usage at zero", func() {
		id := r.Resolve(stacktrace.CallPath{"main"})

		r.RecordUsage(id, 100)
		r.RecordUsage(id, -60)
		r.RecordUsage(id, -60)
		r.RecordUsage(id, -60)

		usage, ok := r.UsageOf(id)
		Expect(ok).To(BeTrue())
		Expect(usage).To(Equal(uint64(0)))
	})

	It("should ignore usage for unknown ids", func() {
		r.RecordUsage(TaskID(42), 100)

		_, ok := r.UsageOf(TaskID(42))
		Expect(ok).To(BeFalse())
	})

	It("should return the path of a task", func() {
		id := r.Resolve(stacktrace.CallPath{"main", "foo"})

		path, ok := r.PathOf(id)
		Expect(ok).To(BeTrue())
		Expect(path).To(Equal("main;foo"))

		_, ok = r.PathOf(TaskID(99))
		Expect(ok).To(BeFalse())
	})

	It("should not issue two ids on concurrent first sees", func() {
		path := stacktrace.CallPath{"main", "hot"}
		ids := make([]TaskID, 64)

		var wg sync.WaitGroup
		for i := 0; i < len(ids); i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ids[i] = r.Resolve(path)
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			Expect(id).To(Equal(ids[0]))
		}
		Expect(r.TaskCount()).To(Equal(1))
	})

	It("should snapshot tasks ordered by id", func() {
		for i := 0; i < 10; i++ {
			r.Resolve(stacktrace.CallPath{"main", fmt.Sprintf("f%d", i)})
		}

		tasks := r.Tasks()

		Expect(tasks).To(HaveLen(10))
		for i := 1; i < len(tasks); i++ {
			Expect(tasks[i].ID).To(BeNumerically(">", tasks[i-1].ID))
		}
	})
})
