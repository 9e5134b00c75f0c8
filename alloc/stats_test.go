package alloc

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Stats", func() {
	It("should derive in-use figures from the counters", func() {
		s := &Stats{}

		s.recordAllocate(100)
		s.recordAllocate(50)
		s.recordDeallocate(50)

		snapshot := s.Snapshot(TagTracking)

		Expect(snapshot.Tag).To(Equal("Tracking"))
		Expect(snapshot.Allocs).To(Equal(uint64(2)))
		Expect(snapshot.Frees).To(Equal(uint64(1)))
		Expect(snapshot.BytesInUse).To(Equal(uint64(100)))
		Expect(snapshot.BlocksInUse).To(Equal(uint64(1)))
	})

	It("should saturate in-use figures at zero", func() {
		s := &Stats{}

		s.recordAllocate(10)
		s.recordDeallocate(10)
		s.recordDeallocate(10)

		snapshot := s.Snapshot(TagSystem)

		Expect(snapshot.BytesInUse).To(BeZero())
		Expect(snapshot.BlocksInUse).To(BeZero())
	})
})

var _ = Describe("Tag", func() {
	It("should name the defined tags", func() {
		Expect(TagTracking.String()).To(Equal("Tracking"))
		Expect(TagSystem.String()).To(Equal("System"))
	})

	It("should reject tags outside the defined set", func() {
		Expect(TagTracking.Valid()).To(BeTrue())
		Expect(TagSystem.Valid()).To(BeTrue())
		Expect(Tag(0xAB).Valid()).To(BeFalse())
		Expect(Tag(0xAB).String()).To(Equal("Invalid"))
	})
})

var _ = Describe("headerOffset", func() {
	It("should reserve at least the tag size", func() {
		// gomega's BeNumerically does not support the uintptr kind.
		Expect(uint64(headerOffset(1))).To(BeNumerically(">=", uint64(tagSize)))
	})

	It("should keep the payload aligned", func() {
		for _, align := range []uintptr{1, 2, 4, 8, 16, 64} {
			Expect(headerOffset(align) % align).To(BeZero())
		}
	})
})
