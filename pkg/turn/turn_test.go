package turn

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Turn", func() {
	Describe("content addressing", func() {
		It("computes the same ID for the same type, content, and lineage", func() {
			a := New("hello", TypeUser)
			b := New("hello", TypeUser)
			Expect(a.ID).To(Equal(b.ID))
		})

		It("ignores metadata fields for identity", func() {
			a := New("hello", TypeUser, WithModel("gpt-4"), WithSource("chat"))
			b := New("hello", TypeUser, WithTags("greeting"))
			Expect(a.ID).To(Equal(b.ID))
		})

		It("changes the ID when the type changes", func() {
			a := New("hello", TypeUser)
			b := New("hello", TypeAssistant)
			Expect(a.ID).NotTo(Equal(b.ID))
		})

		It("changes the ID when the content changes", func() {
			a := New("hello", TypeUser)
			b := New("hello!", TypeUser)
			Expect(a.ID).NotTo(Equal(b.ID))
		})

		It("changes the ID when the lineage changes", func() {
			a := New("hello", TypeUser)
			b := New("hello", TypeUser, WithParents(a.ID))
			Expect(a.ID).NotTo(Equal(b.ID))
		})

		It("is sensitive to parent order", func() {
			p1 := New("one", TypeUser)
			p2 := New("two", TypeAssistant)
			a := New("hello", TypeUser, WithParents(p1.ID, p2.ID))
			b := New("hello", TypeUser, WithParents(p2.ID, p1.ID))
			Expect(a.ID).NotTo(Equal(b.ID))
		})

		It("hex-encodes a 16-byte digest", func() {
			t := New("hello", TypeUser)
			Expect(t.ID).To(HaveLen(32))
		})
	})

	Describe("EstimateTokens", func() {
		It("estimates words * 1.3 rounded", func() {
			Expect(EstimateTokens("This is a test of five words.")).To(Equal(9))
		})

		It("returns 0 for empty text", func() {
			Expect(EstimateTokens("")).To(Equal(0))
		})

		It("returns at least 1 for non-empty text", func() {
			Expect(EstimateTokens("hi")).To(Equal(1))
		})
	})

	Describe("Compress", func() {
		It("creates a SUMMARY turn referencing the original", func() {
			original := New("a long rambling answer", TypeAssistant)
			compressed := original.Compress("short answer")

			Expect(compressed.Type).To(Equal(TypeSummary))
			Expect(compressed.ParentIDs).To(Equal([]string{original.ID}))
			Expect(compressed.Content).To(Equal("short answer"))
			Expect(original.Content).To(Equal("a long rambling answer"))
		})
	})

	Describe("IsCompressible", func() {
		It("allows user, assistant, and tool result turns", func() {
			Expect(New("q", TypeUser).IsCompressible()).To(BeTrue())
			Expect(New("a", TypeAssistant).IsCompressible()).To(BeTrue())
			Expect(New("out", TypeToolResult).IsCompressible()).To(BeTrue())
		})

		It("keeps system, summary, learning, and checkpoint turns verbatim", func() {
			Expect(New("ctx", TypeSystem).IsCompressible()).To(BeFalse())
			Expect(New("sum", TypeSummary).IsCompressible()).To(BeFalse())
			Expect(New("fact", TypeLearning).IsCompressible()).To(BeFalse())
			Expect(New("ckpt", TypeCheckpoint).IsCompressible()).To(BeFalse())
		})
	})

	Describe("Learning", func() {
		It("derives identity from category and fact only", func() {
			a := NewLearning("uses zap for logging", CategoryFact, 0.9, "t1")
			b := NewLearning("uses zap for logging", CategoryFact, 0.5)
			Expect(a.ID).To(Equal(b.ID))
		})

		It("changes identity with the category", func() {
			a := NewLearning("run the linter first", CategoryHeuristic, 0.9)
			b := NewLearning("run the linter first", CategoryConstraint, 0.9)
			Expect(a.ID).NotTo(Equal(b.ID))
		})

		It("renders to a first-person learning turn", func() {
			l := NewLearning("sync DB calls deadlock", CategoryDeadEnd, 0.8, "t1")
			t := l.ToTurn()
			Expect(t.Type).To(Equal(TypeLearning))
			Expect(t.Content).To(Equal("I tried and it failed: sync DB calls deadlock"))
			Expect(t.ParentIDs).To(Equal([]string{"t1"}))
		})

		It("adjusts confidence with usage", func() {
			l := NewLearning("prefer table-driven tests", CategoryPreference, 0.5)
			Expect(l.WithUsage(true).Confidence).To(BeNumerically("~", 0.55, 1e-9))
			Expect(l.WithUsage(false).Confidence).To(BeNumerically("~", 0.4, 1e-9))
			Expect(l.WithUsage(true).UseCount).To(Equal(1))
		})
	})
})
