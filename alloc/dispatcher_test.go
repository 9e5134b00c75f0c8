package alloc

import (
	"unsafe"

	gomock "go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Dispatcher", func() {
	var (
		d *Dispatcher
	)

	BeforeEach(func() {
		d = NewDispatcher(TagSystem)
	})

	It("should serve and reclaim a block", func() {
		ptr := d.Allocate(64, 8)
		Expect(ptr).NotTo(BeNil())
		Expect(uintptr(ptr) % 8).To(BeZero())
		Expect(d.LiveBlocks()).To(Equal(1))

		d.Deallocate(ptr, 64, 8)
		Expect(d.LiveBlocks()).To(BeZero())
	})

	It("should return nil for a zero-size request", func() {
		// gomega's BeNil does not support the unsafe.Pointer kind.
		Expect(d.Allocate(0, 8)).To(Equal(unsafe.Pointer(nil)))
	})

	It("should return nil for a bad alignment", func() {
		Expect(d.Allocate(64, 0)).To(Equal(unsafe.Pointer(nil)))
		Expect(d.Allocate(64, 3)).To(Equal(unsafe.Pointer(nil)))
	})

	It("should route a free to the allocator that served the block",
		func() {
			g := d.Mode().Enter(TagTracking)
			ptr := d.Allocate(64, 8)
			g.Exit()

			// The ambient mode is System by the time the block is freed,
			// but the stored tag must win.
			Expect(d.Mode().Current()).To(Equal(TagSystem))
			d.Deallocate(ptr, 64, 8)

			tracking := d.StatsOf(TagTracking)
			Expect(tracking.Allocs).To(Equal(uint64(1)))
			Expect(tracking.Frees).To(Equal(uint64(1)))

			system := d.StatsOf(TagSystem)
			Expect(system.Frees).To(BeZero())
		})

	It("should fail open to System on a corrupt header", func() {
		ptr := d.Allocate(64, 8)

		offset := headerOffset(8)
		base := unsafe.Add(ptr, -int(offset))
		*(*Tag)(base) = Tag(0xAB)

		Expect(func() {
			d.Deallocate(ptr, 64, 8)
		}).ToNot(Panic())
		Expect(d.LiveBlocks()).To(BeZero())
	})

	It("should keep the payload across reallocation", func() {
		ptr := d.Allocate(8, 8)
		payload := unsafe.Slice((*byte)(ptr), 8)
		copy(payload, []byte("memtrace"))

		newPtr := d.Reallocate(ptr, 8, 8, 16)
		Expect(newPtr).NotTo(BeNil())

		newPayload := unsafe.Slice((*byte)(newPtr), 16)
		Expect(string(newPayload[:8])).To(Equal("memtrace"))

		d.Deallocate(newPtr, 16, 8)
		Expect(d.LiveBlocks()).To(BeZero())
	})

	It("should truncate the payload when shrinking", func() {
		ptr := d.Allocate(8, 8)
		copy(unsafe.Slice((*byte)(ptr), 8), []byte("memtrace"))

		newPtr := d.Reallocate(ptr, 8, 8, 4)

		Expect(string(unsafe.Slice((*byte)(newPtr), 4))).To(Equal("memt"))

		d.Deallocate(newPtr, 4, 8)
	})

	It("should treat a nil pointer reallocation as an allocation", func() {
		ptr := d.Reallocate(nil, 0, 8, 32)

		Expect(ptr).NotTo(BeNil())
		Expect(d.LiveBlocks()).To(Equal(1))

		d.Deallocate(ptr, 32, 8)
	})

	It("should treat a zero-size reallocation as a free", func() {
		ptr := d.Allocate(32, 8)

		Expect(d.Reallocate(ptr, 32, 8, 0)).To(Equal(unsafe.Pointer(nil)))
		Expect(d.LiveBlocks()).To(BeZero())
	})

	Context("with a tracker sink attached", func() {
		var (
			mockCtrl *gomock.Controller
			sink     *MockTrackerSink
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			sink = NewMockTrackerSink(mockCtrl)
			d.AttachTracker(sink)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report tracking-route blocks", func() {
			var reported uintptr
			sink.EXPECT().
				TrackAllocate(gomock.Any(), uintptr(64)).
				Do(func(addr, _ uintptr) { reported = addr })

			g := d.Mode().Enter(TagTracking)
			ptr := d.Allocate(64, 8)
			g.Exit()

			Expect(reported).To(Equal(uintptr(ptr)))

			sink.EXPECT().TrackDeallocate(uintptr(ptr), uintptr(64))
			d.Deallocate(ptr, 64, 8)
		})

		It("should not report system-route blocks", func() {
			ptr := d.Allocate(64, 8)
			d.Deallocate(ptr, 64, 8)
		})

		It("should run the sink under the System tag", func() {
			sink.EXPECT().
				TrackAllocate(gomock.Any(), gomock.Any()).
				Do(func(_, _ uintptr) {
					Expect(d.Mode().Current()).To(Equal(TagSystem))
				})

			g := d.Mode().Enter(TagTracking)
			ptr := d.Allocate(64, 8)
			Expect(d.Mode().Current()).To(Equal(TagTracking))
			g.Exit()

			sink.EXPECT().TrackDeallocate(gomock.Any(), gomock.Any())
			d.Deallocate(ptr, 64, 8)
		})

		It("should not report blocks below the threshold", func() {
			d.threshold = 128

			g := d.Mode().Enter(TagTracking)
			small := d.Allocate(64, 8)
			g.Exit()

			d.Deallocate(small, 64, 8)
		})
	})
})
