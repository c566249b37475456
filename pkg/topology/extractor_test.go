package topology

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.uber.org/zap"
)

var _ = Describe("Extractor", func() {
	var (
		s *Store
		x *Extractor
	)

	BeforeEach(func() {
		var err error
		s, err = NewStore(GinkgoT().TempDir(), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		x = NewExtractor(s, zap.NewNop())
	})

	Describe("ExtractEntities", func() {
		It("recognizes file paths, tech keywords, and identifiers", func() {
			entities := ExtractEntities(
				"updated pkg/chunk/manager.go to call MaybeDemoteWarmToCold before the sqlite flush via save_state")

			names := map[string]EntityType{}
			for _, e := range entities {
				names[e.Name] = e.Type
			}

			Expect(names).To(HaveKeyWithValue("pkg/chunk/manager.go", EntityFile))
			Expect(names).To(HaveKeyWithValue("sqlite", EntityTech))
			Expect(names).To(HaveKeyWithValue("MaybeDemoteWarmToCold", EntitySymbol))
			Expect(names).To(HaveKeyWithValue("save_state", EntitySymbol))
		})

		It("bounds and deduplicates results", func() {
			text := ""
			for i := 0; i < 50; i++ {
				text += "SomeSymbolName AnotherSymbolName kafka kafka "
			}

			entities := ExtractEntities(text)
			Expect(len(entities)).To(BeNumerically("<=", 20))
		})
	})

	Describe("Extract", func() {
		It("wires a memory node to its entities with MENTIONS and CO_OCCURS", func() {
			ids := x.Extract(Candidate{ID: "c1", Text: "migrate redis cache to postgres"}, Facets{})
			Expect(ids).To(HaveLen(2))

			mem, err := s.Node(MemoryNodeID("c1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Kind).To(Equal(KindMemory))

			mentions := s.Outgoing(mem.ID)
			Expect(mentions).To(HaveLen(2))
			for _, e := range mentions {
				Expect(e.Type).To(Equal(RelationMentions))
			}

			// One co-occurrence edge between the two entities.
			Expect(s.Stats().Edges).To(Equal(3))
		})

		It("is safe to re-run over the same candidate", func() {
			c := Candidate{ID: "c1", Text: "migrate redis cache to postgres"}
			x.Extract(c, Facets{})
			before := s.Stats().Edges
			x.Extract(c, Facets{})
			Expect(s.Stats().Edges).To(Equal(before))
		})
	})

	Describe("AutoWire", func() {
		It("links overlapping memories and skips unrelated ones", func() {
			candidates := []Candidate{
				{ID: "a", Text: "configured kafka broker with docker compose"},
				{ID: "b", Text: "the kafka broker in docker needs more memory"},
				{ID: "c", Text: "wrote a haiku about spring"},
			}

			added := x.AutoWire(candidates, 10)
			Expect(added).To(Equal(1))

			edges := append(s.Outgoing(MemoryNodeID("b")), s.Incoming(MemoryNodeID("b"))...)
			Expect(edges).NotTo(BeEmpty())
		})

		It("marks revisions with contradiction markers as CONTRADICTS", func() {
			candidates := []Candidate{
				{ID: "a", Text: "use the qdrant driver for vector search"},
				{ID: "b", Text: "turns out the qdrant driver for vector search deadlocks"},
			}

			x.AutoWire(candidates, 10)
			Expect(s.FindContradictions()).To(HaveLen(1))
		})

		It("respects the candidate window bound", func() {
			candidates := []Candidate{
				{ID: "a", Text: "kafka and docker setup"},
				{ID: "b", Text: "kafka and docker teardown"},
				{ID: "c", Text: "kafka and docker restart"},
			}

			// Window of 1 leaves no pairs to compare.
			Expect(x.AutoWire(candidates, 1)).To(Equal(0))
		})
	})
})
