package tracking

import (
	"strings"

	gomock "go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memtrace/stacktrace"
)

var _ = Describe("CollectUsage", func() {
	var (
		mockCtrl *gomock.Controller
		tracer   *MockUsageTracer
		r        *Registry
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockUsageTracer(mockCtrl)

		r = NewRegistry()
		CollectUsage(r, tracer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report task registration once per path", func() {
		tracer.EXPECT().RegisterTask(gomock.Any()).Do(func(task Task) {
			Expect(task.Path).To(Equal("main;foo"))
			Expect(task.ID).To(Equal(TaskID(1)))
		})

		r.Resolve(stacktrace.CallPath{"main", "foo"})
		r.Resolve(stacktrace.CallPath{"main", "foo"})
	})

	It("should report usage events with the running total", func() {
		tracer.EXPECT().RegisterTask(gomock.Any())

		id := r.Resolve(stacktrace.CallPath{"main", "foo"})

		gomock.InOrder(
			tracer.EXPECT().RecordUsage(gomock.Any()).Do(
				func(e UsageEvent) {
					Expect(e.Delta).To(Equal(int64(64)))
					Expect(e.Total).To(Equal(uint64(64)))
				}),
			tracer.EXPECT().RecordUsage(gomock.Any()).Do(
				func(e UsageEvent) {
					Expect(e.Delta).To(Equal(int64(-24)))
					Expect(e.Total).To(Equal(uint64(40)))
				}),
		)

		r.RecordUsage(id, 64)
		r.RecordUsage(id, -24)
	})

	It("should not report usage for unknown ids", func() {
		r.RecordUsage(TaskID(7), 64)
	})
})

var _ = Describe("CollectFilteredUsage", func() {
	var (
		mockCtrl *gomock.Controller
		tracer   *MockUsageTracer
		r        *Registry
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockUsageTracer(mockCtrl)

		r = NewRegistry()
		CollectFilteredUsage(r, tracer, func(t Task) bool {
			return strings.HasPrefix(t.Path, "main;")
		})
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should only report tasks the filter accepts", func() {
		tracer.EXPECT().RegisterTask(gomock.Any()).Do(func(task Task) {
			Expect(task.Path).To(Equal("main;foo"))
		})

		r.Resolve(stacktrace.CallPath{"main", "foo"})
		r.Resolve(stacktrace.CallPath{"worker", "bar"})
	})

	It("should drop usage events of rejected tasks", func() {
		tracer.EXPECT().RegisterTask(gomock.Any())
		tracer.EXPECT().RecordUsage(gomock.Any()).Do(func(e UsageEvent) {
			Expect(e.Path).To(Equal("main;foo"))
		})

		accepted := r.Resolve(stacktrace.CallPath{"main", "foo"})
		rejected := r.Resolve(stacktrace.CallPath{"worker", "bar"})

		r.RecordUsage(rejected, 32)
		r.RecordUsage(accepted, 64)
	})
})
