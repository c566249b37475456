package retrieval

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/simulacrum/pkg/turn"
)

var _ = Describe("Budget", func() {
	It("reserves response tokens out of the available total", func() {
		b := Budget{Total: 1000, Response: 250}
		Expect(b.Available()).To(Equal(750))
	})

	It("builds sane default reservations", func() {
		b := DefaultBudget(10000)
		Expect(b.Available()).To(Equal(7500))
		Expect(b.System + b.Recent + b.Retrieved + b.Learnings).To(BeNumerically("<=", b.Available()))
	})
})

var _ = Describe("Assembler", func() {
	It("never exceeds total minus response tokens", func() {
		budget := Budget{Total: 100, Response: 60, System: 20, Recent: 20, Retrieved: 20, Learnings: 20}
		a := NewAssembler(budget, nil)

		many := make([]Item, 40)
		for i := range many {
			many[i] = Item{Text: "some moderately long candidate line of text here", Relevance: float64(i)}
		}

		out := a.Assemble(Sections{
			System:    strings.Repeat("system prompt words ", 30),
			Recent:    many,
			Retrieved: many,
			Learnings: many,
		})

		Expect(turn.EstimateTokens(out)).To(BeNumerically("<=", budget.Available()))
	})

	It("keeps highest-relevance items within a section", func() {
		budget := Budget{Total: 200, Response: 100, Recent: 15}
		a := NewAssembler(budget, nil)

		out := a.Assemble(Sections{
			Recent: []Item{
				{Text: "low priority detail nobody needs", Relevance: 0.1},
				{Text: "critical recent exchange", Relevance: 0.9},
			},
		})

		Expect(out).To(ContainSubstring("critical recent exchange"))
	})

	It("drops overflow within a section instead of borrowing from another", func() {
		budget := Budget{Total: 120, Response: 60, Recent: 5, Learnings: 30}
		a := NewAssembler(budget, nil)

		out := a.Assemble(Sections{
			Recent: []Item{
				{Text: "fits in recent", Relevance: 1.0},
				{Text: "this one is far too long to fit inside the tiny recent reservation at all", Relevance: 0.9},
			},
			Learnings: []Item{
				{Text: "a learning with room to spare", Relevance: 1.0},
			},
		})

		Expect(out).To(ContainSubstring("fits in recent"))
		Expect(out).NotTo(ContainSubstring("far too long"))
		Expect(out).To(ContainSubstring("a learning with room to spare"))
	})

	It("returns an empty string when nothing is offered", func() {
		a := NewAssembler(DefaultBudget(1000), nil)
		Expect(a.Assemble(Sections{})).To(BeEmpty())
	})
})

var _ = Describe("MemoryContext", func() {
	It("renders sections in durability order", func() {
		mc := MemoryContext{
			Learnings: []turn.Learning{turn.NewLearning("archives use gzip", turn.CategoryFact, 0.9)},
			Turns:     []turn.Turn{turn.New("what about compression?", turn.TypeUser)},
		}

		out := mc.ToContext(1000)
		Expect(strings.Index(out, "archives use gzip")).To(BeNumerically("<", strings.Index(out, "what about compression?")))
	})

	It("stops at the token cap", func() {
		mc := MemoryContext{}
		for i := 0; i < 100; i++ {
			mc.Learnings = append(mc.Learnings,
				turn.NewLearning(strings.Repeat("very important fact ", 10), turn.CategoryFact, 0.9))
		}

		out := mc.ToContext(50)
		Expect(turn.EstimateTokens(out)).To(BeNumerically("<=", 50))
	})

	It("reports emptiness", func() {
		Expect(MemoryContext{}.IsEmpty()).To(BeTrue())
		Expect(MemoryContext{FocusTopics: []string{"x"}}.IsEmpty()).To(BeTrue())
		Expect(MemoryContext{Turns: []turn.Turn{turn.New("t", turn.TypeUser)}}.IsEmpty()).To(BeFalse())
	})
})
