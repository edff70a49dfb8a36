package store

import (
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

var _ = Describe("BoltPreferences", func() {
	var (
		dbPath string
		prefs  *BoltPreferences
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "state.db")
		var err error
		prefs, err = NewBoltPreferences(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if prefs != nil {
			prefs.Close()
		}
	})

	Describe("Get", func() {
		When("the key was never set", func() {
			It("should return ErrNotFound", func() {
				_, err := prefs.Get(KeyToken)
				Expect(err).To(MatchError(ErrNotFound))
			})
		})

		When("the key was set", func() {
			BeforeEach(func() {
				Expect(prefs.Set(KeyToken, "abc")).To(Succeed())
			})

			It("should return the stored value", func() {
				v, err := prefs.Get(KeyToken)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal("abc"))
			})
		})
	})

	Describe("Set", func() {
		It("should replace an existing value", func() {
			Expect(prefs.Set(KeyUserMode, "individual")).To(Succeed())
			Expect(prefs.Set(KeyUserMode, "company")).To(Succeed())
			v, err := prefs.Get(KeyUserMode)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("company"))
		})
	})

	Describe("Delete", func() {
		It("should remove the key", func() {
			Expect(prefs.Set(KeyUser, "{}")).To(Succeed())
			Expect(prefs.Delete(KeyUser)).To(Succeed())
			_, err := prefs.Get(KeyUser)
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should not fail for a missing key", func() {
			Expect(prefs.Delete("missing")).To(Succeed())
		})
	})

	When("the file is reopened", func() {
		It("should keep values across restarts", func() {
			Expect(prefs.Set(TutorialCompletedKey("u1"), "true")).To(Succeed())
			Expect(prefs.Close()).To(Succeed())

			reopened, err := NewBoltPreferences(dbPath)
			Expect(err).NotTo(HaveOccurred())
			prefs = reopened

			v, err := prefs.Get("tutorialCompleted_u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("true"))
		})
	})
})

var _ = Describe("MemoryPreferences", func() {
	It("should behave like a key/value store", func() {
		prefs := NewMemoryPreferences()
		_, err := prefs.Get("k")
		Expect(err).To(MatchError(ErrNotFound))

		Expect(prefs.Set("k", "v")).To(Succeed())
		v, err := prefs.Get("k")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("v"))

		Expect(prefs.Delete("k")).To(Succeed())
		_, err = prefs.Get("k")
		Expect(err).To(MatchError(ErrNotFound))
	})
})
