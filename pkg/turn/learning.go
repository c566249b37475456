package turn

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Category classifies an extracted learning.
type Category string

const (
	CategoryFact       Category = "fact"
	CategoryPreference Category = "preference"
	CategoryConstraint Category = "constraint"
	CategoryPattern    Category = "pattern"
	CategoryDeadEnd    Category = "dead_end"
	CategoryTemplate   Category = "template"
	CategoryHeuristic  Category = "heuristic"
)

// learningDigestSize is the digest size in bytes for learning IDs.
const learningDigestSize = 12

// Learning is an extracted piece of knowledge that persists even when the
// turns it came from are compressed away.
//
// Identity is based on category + fact only; scoring metadata does not
// affect the ID, so the same fact in the same category is the same learning.
type Learning struct {
	ID string `json:"id"`

	// Fact is the actual learning or insight.
	Fact string `json:"fact"`

	Category Category `json:"category"`

	// SourceTurns are the turn IDs this was extracted from.
	SourceTurns []string `json:"source_turns,omitempty"`

	// Confidence is a 0-1 score.
	Confidence float64 `json:"confidence"`

	Timestamp time.Time `json:"timestamp"`

	// SupersededBy points to a newer version of this learning, if any.
	SupersededBy string `json:"superseded_by,omitempty"`

	// Embedding is an optional pre-computed vector for retrieval.
	Embedding []float32 `json:"embedding,omitempty"`

	// UseCount tracks how many times this learning has been applied.
	UseCount int `json:"use_count,omitempty"`
}

// NewLearning creates a Learning with its content-addressed ID computed
// from category and fact.
func NewLearning(fact string, category Category, confidence float64, sourceTurns ...string) Learning {
	return Learning{
		ID:          learningID(category, fact),
		Fact:        fact,
		Category:    category,
		SourceTurns: sourceTurns,
		Confidence:  confidence,
		Timestamp:   time.Now().UTC(),
	}
}

func learningID(category Category, fact string) string {
	h, err := blake2b.New(learningDigestSize, nil)
	if err != nil {
		panic("turn: blake2b init: " + err.Error())
	}

	h.Write([]byte(string(category)))
	h.Write([]byte(":"))
	h.Write([]byte(fact))

	return hex.EncodeToString(h.Sum(nil))
}

// firstPersonPrefix frames a learning as the agent's own memory rather than
// a log about someone else.
func (l Learning) firstPersonPrefix() string {
	switch l.Category {
	case CategoryFact:
		return "I know:"
	case CategoryPreference:
		return "I prefer:"
	case CategoryConstraint:
		return "I must:"
	case CategoryPattern:
		return "I use:"
	case CategoryDeadEnd:
		return "I tried and it failed:"
	case CategoryTemplate:
		return "I follow this pattern:"
	case CategoryHeuristic:
		return "I've found:"
	default:
		return "I learned:"
	}
}

// ToTurn converts the learning into a Turn for context injection.
func (l Learning) ToTurn() Turn {
	return New(
		l.firstPersonPrefix()+" "+l.Fact,
		TypeLearning,
		WithParents(l.SourceTurns...),
		WithConfidence(l.Confidence),
	)
}

// WithUsage returns a copy of the learning with usage stats updated.
// Success nudges confidence up, failure pulls it down harder.
func (l Learning) WithUsage(success bool) Learning {
	if success {
		l.Confidence = min(1.0, l.Confidence+0.05)
	} else {
		l.Confidence = max(0.1, l.Confidence-0.1)
	}

	l.UseCount++
	return l
}
