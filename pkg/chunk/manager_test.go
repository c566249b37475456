package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/simulacrum/pkg/turn"
)

func makeTurns(n int, prefix string) []turn.Turn {
	turns := make([]turn.Turn, n)
	for i := range turns {
		turns[i] = turn.New(fmt.Sprintf("%s %d", prefix, i), turn.TypeUser)
	}
	return turns
}

var _ = Describe("Manager", func() {
	var (
		dir string
		m   *Manager
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		var err error
		m, err = NewManager(Config{
			Dir:            dir,
			MicroChunkSize: 3,
			HotChunks:      2,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("AddTurns", func() {
		It("seals a micro chunk once enough turns accumulate", func() {
			sealed := m.AddTurns(makeTurns(2, "early")...)
			Expect(sealed).To(BeEmpty())
			Expect(m.PendingTurns()).To(HaveLen(2))

			sealed = m.AddTurns(makeTurns(1, "late")...)
			Expect(sealed).To(HaveLen(1))
			Expect(sealed[0].Type).To(Equal(TypeMicro))
			Expect(sealed[0].Range).To(Equal(Range{Start: 0, End: 2}))
			Expect(m.PendingTurns()).To(BeEmpty())
		})

		It("assigns monotonic, non-overlapping ranges", func() {
			sealed := m.AddTurns(makeTurns(9, "run")...)
			Expect(sealed).To(HaveLen(3))
			Expect(sealed[0].Range).To(Equal(Range{Start: 0, End: 2}))
			Expect(sealed[1].Range).To(Equal(Range{Start: 3, End: 5}))
			Expect(sealed[2].Range).To(Equal(Range{Start: 6, End: 8}))
		})

		It("demotes hot chunks beyond the cap to warm", func() {
			m.AddTurns(makeTurns(9, "run")...)

			hot := 0
			warm := 0
			for _, c := range m.RecentChunks(10) {
				switch c.Tier() {
				case TierHot:
					hot++
				case TierWarm:
					warm++
				}
			}

			Expect(hot).To(Equal(2))
			Expect(warm).To(Equal(1))
		})
	})

	Describe("demotion", func() {
		It("clears both in-memory forms and sets the archive ref on demote to macro", func() {
			turns := []turn.Turn{turn.New("archived turn", turn.TypeUser)}
			c := NewChunk(turns, 0)
			m.chunks[c.ID] = &c

			Expect(m.DemoteToMacro(c.ID)).To(Succeed())

			got, err := m.Get(c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Turns).To(BeNil())
			Expect(got.ContentCTF).To(BeEmpty())
			Expect(got.ContentRef).To(HaveSuffix(".json.gz"))
			Expect(got.Type).To(Equal(TypeMacro))
			Expect(got.Tier()).To(Equal(TierCold))
		})

		It("expands an archived chunk back to its original turns", func() {
			turns := []turn.Turn{turn.New("archived turn", turn.TypeUser)}
			c := NewChunk(turns, 0)
			m.chunks[c.ID] = &c

			Expect(m.DemoteToCold(c.ID)).To(Succeed())

			expanded, err := m.ExpandChunk(c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(expanded).To(HaveLen(1))
			Expect(expanded[0].Content).To(Equal("archived turn"))
			Expect(expanded[0].ID).To(Equal(turns[0].ID))

			// Expansion is a pure read.
			got, err := m.Get(c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Tier()).To(Equal(TierCold))
		})

		It("round-trips content through the warm tier", func() {
			turns := []turn.Turn{turn.New("warm content\nacross lines", turn.TypeAssistant)}
			c := NewChunk(turns, 0)
			m.chunks[c.ID] = &c

			Expect(m.DemoteToWarm(c.ID)).To(Succeed())

			expanded, err := m.ExpandChunk(c.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(expanded).To(HaveLen(1))
			Expect(expanded[0].Content).To(Equal("warm content\nacross lines"))
		})

		It("returns a typed error for unknown chunks", func() {
			err := m.DemoteToCold("missing")
			Expect(IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("warm eviction", func() {
		newWarmChunk := func(content string, start int, endedAt time.Time) Chunk {
			c := NewChunk([]turn.Turn{turn.New(content, turn.TypeUser)}, start)
			c.EndedAt = endedAt
			return c
		}

		It("demotes warm chunks past the age threshold", func() {
			old := newWarmChunk("stale", 0, time.Now().AddDate(0, 0, -30))
			fresh := newWarmChunk("fresh", 1, time.Now())
			m.chunks[old.ID] = &old
			m.chunks[fresh.ID] = &fresh
			Expect(m.DemoteToWarm(old.ID)).To(Succeed())
			Expect(m.DemoteToWarm(fresh.ID)).To(Succeed())

			demoted, err := m.MaybeDemoteWarmToCold(time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(demoted).To(Equal(1))

			got, _ := m.Get(old.ID)
			Expect(got.Tier()).To(Equal(TierCold))
			got, _ = m.Get(fresh.ID)
			Expect(got.Tier()).To(Equal(TierWarm))
		})

		It("demotes the oldest-by-range-start chunks beyond the warm cap", func() {
			small, err := NewManager(Config{
				Dir:               GinkgoT().TempDir(),
				MicroChunkSize:    3,
				WarmRetentionDays: 365,
				MaxWarmChunks:     2,
			})
			Expect(err).NotTo(HaveOccurred())

			now := time.Now()
			for i := 0; i < 4; i++ {
				c := NewChunk([]turn.Turn{turn.New(fmt.Sprintf("warm %d", i), turn.TypeUser)}, i)
				c.EndedAt = now
				small.chunks[c.ID] = &c
				Expect(small.DemoteToWarm(c.ID)).To(Succeed())
			}

			demoted, err := small.MaybeDemoteWarmToCold(now)
			Expect(err).NotTo(HaveOccurred())
			Expect(demoted).To(Equal(2))

			warm := small.WarmChunks()
			Expect(warm).To(HaveLen(2))
			Expect(warm[0].Range.Start).To(Equal(2))
			Expect(warm[1].Range.Start).To(Equal(3))
		})
	})

	Describe("Stats", func() {
		It("counts chunks by type and sums tokens", func() {
			micro := NewChunk(makeTurns(1, "a"), 0)
			micro.TokenCount = 10

			macro := NewChunk(makeTurns(1, "b"), 1)
			macro.Type = TypeMacro
			macro.TokenCount = 20
			macro.ContentCTF = "#CTF v1\n"
			macro.Turns = nil

			m.chunks[micro.ID] = &micro
			m.chunks[macro.ID] = &macro

			stats := m.Stats()
			Expect(stats.TotalChunks).To(Equal(2))
			Expect(stats.MicroChunks).To(Equal(1))
			Expect(stats.MacroChunks).To(Equal(1))
			Expect(stats.TotalTokens).To(Equal(30))
		})
	})

	Describe("persistence", func() {
		It("survives a save and reload", func() {
			m.AddTurns(makeTurns(6, "persist")...)
			Expect(m.Save()).To(Succeed())

			reloaded, err := NewManager(Config{Dir: dir, MicroChunkSize: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Stats().TotalChunks).To(Equal(2))

			// Ordinals continue where the previous session stopped.
			sealed := reloaded.AddTurns(makeTurns(3, "next")...)
			Expect(sealed).To(HaveLen(1))
			Expect(sealed[0].Range.Start).To(Equal(6))
		})

		It("keeps unsealed turns across a save and reload", func() {
			t := turn.New("remember me", turn.TypeUser)
			Expect(m.AddTurns(t)).To(BeEmpty())
			Expect(m.Save()).To(Succeed())

			reloaded, err := NewManager(Config{Dir: dir, MicroChunkSize: 3})
			Expect(err).NotTo(HaveOccurred())

			pending := reloaded.PendingTurns()
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].ID).To(Equal(t.ID))
			Expect(pending[0].Content).To(Equal("remember me"))
		})

		It("seals reloaded pending turns once the run fills", func() {
			m.AddTurns(makeTurns(2, "carry")...)
			Expect(m.Save()).To(Succeed())

			reloaded, err := NewManager(Config{Dir: dir, MicroChunkSize: 3})
			Expect(err).NotTo(HaveOccurred())

			sealed := reloaded.AddTurns(makeTurns(1, "fill")...)
			Expect(sealed).To(HaveLen(1))
			Expect(sealed[0].Range).To(Equal(Range{Start: 0, End: 2}))
			Expect(reloaded.PendingTurns()).To(BeEmpty())
		})
	})

	Describe("CleanupExpiredArchives", func() {
		It("removes archive blobs no chunk references", func() {
			orphan := filepath.Join(dir, "archive", strings.Repeat("ab", 16)+ArchiveSuffix)
			Expect(os.WriteFile(orphan, []byte("stale"), 0o644)).To(Succeed())

			c := NewChunk([]turn.Turn{turn.New("kept", turn.TypeUser)}, 0)
			m.chunks[c.ID] = &c
			Expect(m.DemoteToCold(c.ID)).To(Succeed())

			removed, err := m.CleanupExpiredArchives()
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))

			_, err = os.Stat(orphan)
			Expect(os.IsNotExist(err)).To(BeTrue())

			got, _ := m.Get(c.ID)
			_, err = os.Stat(filepath.Join(dir, got.ContentRef))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
