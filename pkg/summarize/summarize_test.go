package summarize

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/simulacrum/pkg/turn"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.response, g.err
}

var _ = Describe("Heuristic", func() {
	It("labels a discussion with its opening content", func() {
		turns := []turn.Turn{
			turn.New("how do I archive old chunks?", turn.TypeUser),
			turn.New("demote them past the retention window", turn.TypeAssistant),
		}

		summary, err := NewHeuristic().Summarize(context.Background(), turns)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(Equal("Discussion starting with: how do I archive old chunks?"))
	})

	It("truncates long openings", func() {
		turns := []turn.Turn{turn.New(strings.Repeat("x", 500), turn.TypeUser)}

		summary, err := NewHeuristic().Summarize(context.Background(), turns)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(HaveSuffix("..."))
		Expect(len(summary)).To(BeNumerically("<", 200))
	})

	It("truncates multi-byte content on a rune boundary", func() {
		turns := []turn.Turn{turn.New(strings.Repeat("日本語テキスト", 50), turn.TypeUser)}

		summary, err := NewHeuristic().Summarize(context.Background(), turns)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(HaveSuffix("..."))
		Expect(utf8.ValidString(summary)).To(BeTrue())
	})

	It("handles an empty sequence", func() {
		summary, err := NewHeuristic().Summarize(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(Equal("Empty discussion"))
	})
})

var _ = Describe("Semantic", func() {
	turns := []turn.Turn{turn.New("explain warm eviction", turn.TypeUser)}

	It("uses the generator when it answers", func() {
		gen := &stubGenerator{response: "User asked about eviction policy."}

		summary, err := NewSemantic(gen).Summarize(context.Background(), turns)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(Equal("User asked about eviction policy."))
		Expect(gen.prompts).To(HaveLen(1))
		Expect(gen.prompts[0]).To(ContainSubstring("explain warm eviction"))
	})

	It("falls back to the heuristic when the generator fails", func() {
		gen := &stubGenerator{err: errors.New("model unavailable")}

		summary, err := NewSemantic(gen).Summarize(context.Background(), turns)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(Equal("Discussion starting with: explain warm eviction"))
	})

	It("falls back when the generator returns nothing", func() {
		gen := &stubGenerator{response: "   "}

		summary, err := NewSemantic(gen).Summarize(context.Background(), turns)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(HavePrefix("Discussion starting with:"))
	})

	It("works without a generator at all", func() {
		summary, err := NewSemantic(nil).Summarize(context.Background(), turns)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(HavePrefix("Discussion starting with:"))
	})
})
