package tracking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memtrace/stacktrace"
)

var _ = Describe("Tracker", func() {
	var (
		r       *Registry
		tracker *Tracker
		frames  []string
	)

	BeforeEach(func() {
		r = NewRegistry()
		tracker = NewTracker(r, stacktrace.NewResolver().
			WithNoisePatterns(nil))
		frames = []string{"app::leaf", "app::main"}
		tracker.capture = func() []string { return frames }
	})

	It("should attribute an allocation to the resolved task", func() {
		tracker.TrackAllocate(0x1000, 64)

		id := r.Resolve(stacktrace.CallPath{"app::main", "app::leaf"})
		usage, ok := r.UsageOf(id)

		Expect(ok).To(BeTrue())
		Expect(usage).To(Equal(uint64(64)))
		Expect(tracker.TrackedBlocks()).To(Equal(1))
	})

	It("should charge a free back to the owning task", func() {
		tracker.TrackAllocate(0x1000, 64)
		id := r.Resolve(stacktrace.CallPath{"app::main", "app::leaf"})

		// Another task is current when the block is freed.
		frames = []string{"app::other", "app::main"}
		tracker.TrackDeallocate(0x1000, 64)

		usage, _ := r.UsageOf(id)
		Expect(usage).To(Equal(uint64(0)))
		Expect(tracker.TrackedBlocks()).To(Equal(0))
	})

	It("should skip allocations whose stack resolves to nothing", func() {
		frames = nil

		tracker.TrackAllocate(0x2000, 64)

		Expect(r.TaskCount()).To(Equal(0))
		Expect(tracker.TrackedBlocks()).To(Equal(0))
	})

	It("should ignore frees of unattributed blocks", func() {
		tracker.TrackDeallocate(0x3000, 64)

		Expect(r.TaskCount()).To(Equal(0))
	})
})
