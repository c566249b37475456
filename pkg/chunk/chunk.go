// Package chunk groups turns into contiguous chunks and drives their
// storage lifecycle.
//
// A chunk passes through three tiers. Hot chunks hold their turns in
// memory. Warm chunks hold a compact text encoding (CTF) instead. Cold
// chunks hold only a reference to a compressed archive blob on disk.
// Demotion is the only automatic transition; ExpandChunk rehydrates
// content for reading without changing tier membership.
package chunk

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/papercomputeco/simulacrum/pkg/turn"
)

// Type classifies a chunk by granularity.
type Type string

const (
	// TypeMicro is a small raw run of turns, created directly from ingestion.
	TypeMicro Type = "micro"

	// TypeMacro is a compressed, typically summarized chunk produced by
	// demotion of older content.
	TypeMacro Type = "macro"
)

// Tier is the storage lifecycle stage of a chunk.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// idDigestSize is the digest size in bytes for chunk IDs.
const idDigestSize = 16

// Range identifies the contiguous run of turn ordinals a chunk covers.
// Ranges are monotonically increasing and never overlap between siblings.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is a contiguous, non-overlapping run of turns.
//
// Exactly one content representation is materialized at a time: Turns for
// the hot tier, ContentCTF for the warm tier, ContentRef for the cold
// tier. Demotion clears the richer form when it sets the cheaper one.
type Chunk struct {
	// ID is content-addressed from the member turn IDs.
	ID string `json:"id"`

	Type Type `json:"chunk_type"`

	// Range is the turn ordinal span this chunk covers.
	Range Range `json:"turn_range"`

	// Turns is the in-memory turn list. Non-nil only in the hot tier.
	Turns []turn.Turn `json:"turns,omitempty"`

	// ContentCTF is the inline compact serialization. Set only in the
	// warm tier.
	ContentCTF string `json:"content_ctf,omitempty"`

	// ContentRef points at the archive blob, relative to the manager's
	// root directory. Set only in the cold tier.
	ContentRef string `json:"content_ref,omitempty"`

	// TokenCount is the estimated token total across member turns.
	TokenCount int `json:"token_count"`

	// Summary is an optional summarizer-produced label for the chunk.
	Summary string `json:"summary,omitempty"`

	// Embedding is an optional vector for the chunk summary or content.
	Embedding []float32 `json:"embedding,omitempty"`

	// StartedAt and EndedAt bracket the member turn timestamps.
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// NewChunk builds a hot micro chunk from an ordered turn run starting at
// the given ordinal.
func NewChunk(turns []turn.Turn, start int) Chunk {
	c := Chunk{
		ID:    computeID(turns),
		Type:  TypeMicro,
		Range: Range{Start: start, End: start + len(turns) - 1},
		Turns: turns,
	}

	for _, t := range turns {
		c.TokenCount += t.TokenCount
	}

	if len(turns) > 0 {
		c.StartedAt = turns[0].Timestamp
		c.EndedAt = turns[len(turns)-1].Timestamp
	}

	return c
}

// computeID hashes the ordered member turn IDs into a hex digest.
func computeID(turns []turn.Turn) string {
	h, err := blake2b.New(idDigestSize, nil)
	if err != nil {
		panic("chunk: blake2b init: " + err.Error())
	}

	ids := make([]string, len(turns))
	for i, t := range turns {
		ids[i] = t.ID
	}

	h.Write([]byte(strings.Join(ids, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// Tier reports the current storage tier from which content forms are set.
func (c *Chunk) Tier() Tier {
	switch {
	case c.Turns != nil:
		return TierHot
	case c.ContentCTF != "":
		return TierWarm
	default:
		return TierCold
	}
}

// clone returns a deep-enough copy for handing to readers; slices that
// callers could mutate are copied.
func (c *Chunk) clone() Chunk {
	out := *c

	if c.Turns != nil {
		out.Turns = make([]turn.Turn, len(c.Turns))
		copy(out.Turns, c.Turns)
	}

	if c.Embedding != nil {
		out.Embedding = make([]float32, len(c.Embedding))
		copy(out.Embedding, c.Embedding)
	}

	return out
}
