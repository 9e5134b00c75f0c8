package alloc

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ModeController", func() {
	var (
		c *ModeController
	)

	BeforeEach(func() {
		c = NewModeController(TagSystem)
	})

	It("should start with the default tag", func() {
		Expect(c.Current()).To(Equal(TagSystem))
	})

	It("should install and restore a tag", func() {
		g := c.Enter(TagTracking)
		Expect(c.Current()).To(Equal(TagTracking))

		g.Exit()
		Expect(c.Current()).To(Equal(TagSystem))
	})

	It("should treat nested enter of the same tag as a no-op", func() {
		outer := c.Enter(TagTracking)

		inner := c.Enter(TagTracking)
		inner.Exit()

		// The inner pair must not restore anything: the mode is still the
		// one the outer enter installed.
		Expect(c.Current()).To(Equal(TagTracking))

		outer.Exit()
		Expect(c.Current()).To(Equal(TagSystem))
	})

	It("should restore through alternating nested regions", func() {
		outer := c.Enter(TagTracking)
		inner := c.Enter(TagSystem)

		Expect(c.Current()).To(Equal(TagSystem))

		inner.Exit()
		Expect(c.Current()).To(Equal(TagTracking))

		outer.Exit()
		Expect(c.Current()).To(Equal(TagSystem))
	})

	It("should make a second exit a no-op", func() {
		g := c.Enter(TagTracking)
		g.Exit()

		c2 := c.Enter(TagTracking)
		g.Exit()

		Expect(c.Current()).To(Equal(TagTracking))
		c2.Exit()
	})

	It("should leave the zero guard inert", func() {
		var g Guard

		Expect(func() { g.Exit() }).ToNot(Panic())
	})

	It("should restore the prior tag when the closure panics", func() {
		Expect(func() {
			c.Run(TagTracking, func() {
				panic("boom")
			})
		}).To(Panic())

		Expect(c.Current()).To(Equal(TagSystem))
	})

	It("should run the closure under the requested tag", func() {
		var seen Tag

		c.Run(TagTracking, func() {
			seen = c.Current()
		})

		Expect(seen).To(Equal(TagTracking))
		Expect(c.Current()).To(Equal(TagSystem))
	})
})
