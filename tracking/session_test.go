package tracking

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memtrace/alloc"
)

var _ = Describe("Session", func() {
	It("should create sessions with distinct ids", func() {
		s1 := NewSession()
		s2 := NewSession()

		Expect(s1.ID).NotTo(BeEmpty())
		Expect(s1.ID).NotTo(Equal(s2.ID))
	})

	It("should expose the registry and resolver before beginning", func() {
		s := NewSession()

		Expect(s.Registry()).NotTo(BeNil())
		Expect(s.Resolver()).NotTo(BeNil())
		Expect(s.Dispatcher()).To(BeNil())
	})

	It("should switch the mode for its lifetime", func() {
		profilePath := filepath.Join(GinkgoT().TempDir(), "profile.folded")
		os.Setenv("MEMTRACE_PROFILE_PATH", profilePath)
		defer os.Unsetenv("MEMTRACE_PROFILE_PATH")

		s := NewSession()
		s.Begin()

		Expect(s.Dispatcher()).NotTo(BeNil())
		Expect(s.Dispatcher().Mode().Current()).
			To(Equal(alloc.TagTracking))
		Expect(func() { s.Begin() }).To(Panic())

		s.End()
		Expect(s.Dispatcher().Mode().Current()).To(Equal(alloc.TagSystem))

		// A second End must not disturb the restored mode.
		s.End()
		Expect(s.Dispatcher().Mode().Current()).To(Equal(alloc.TagSystem))

		data, err := os.ReadFile(profilePath)
		Expect(err).ToNot(HaveOccurred())
		Expect(strings.HasPrefix(string(data), "# Memory Profile\n")).
			To(BeTrue())
	})
})
