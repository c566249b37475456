// Package turn defines the atomic, content-addressed record of one
// conversational event.
//
// A Turn's ID is a deterministic hash of its type, content, and ordered
// parent IDs. The same tuple always yields the same ID, which is the
// deduplication contract for every store built on top of turns. Turns are
// immutable after construction; "compression" produces a new SUMMARY turn
// referencing the original via ParentIDs, never a mutation.
package turn

import (
	"encoding/hex"
	"math"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Type classifies a conversation turn.
type Type string

const (
	TypeUser       Type = "user"
	TypeAssistant  Type = "assistant"
	TypeSystem     Type = "system"
	TypeToolCall   Type = "tool_call"
	TypeToolResult Type = "tool_result"
	TypeSummary    Type = "summary"
	TypeLearning   Type = "learning"
	TypeCheckpoint Type = "checkpoint"
)

// idDigestSize is the digest size in bytes for turn IDs (hex-encoded to 32 chars).
const idDigestSize = 16

// Turn is a single turn in a conversation.
//
// Identity is content-addressable: two turns with equal (Type, Content,
// ParentIDs) have equal IDs and must be treated as the same turn regardless
// of other field values.
type Turn struct {
	// ID is the content-addressed identifier, computed at construction.
	ID string `json:"id"`

	// Content is the actual message content.
	Content string `json:"content"`

	// Type classifies the turn.
	Type Type `json:"turn_type"`

	// Timestamp records when the turn occurred.
	Timestamp time.Time `json:"timestamp"`

	// ParentIDs are the IDs of parent turns, in order (provenance DAG edges).
	ParentIDs []string `json:"parent_ids,omitempty"`

	// Source records where the content came from (file, tool, model).
	Source string `json:"source,omitempty"`

	// TokenCount is the estimated token count for Content.
	TokenCount int `json:"token_count"`

	// Model is the model that generated this turn, for assistant turns.
	Model string `json:"model,omitempty"`

	// Confidence is a 0-1 score, used for learning turns.
	Confidence float64 `json:"confidence,omitempty"`

	// Tags are semantic tags for retrieval.
	Tags []string `json:"tags,omitempty"`
}

// Option configures a Turn created with New.
type Option func(*Turn)

// WithParents sets the ordered parent turn IDs.
func WithParents(ids ...string) Option {
	return func(t *Turn) {
		t.ParentIDs = ids
	}
}

// WithSource sets the content source.
func WithSource(source string) Option {
	return func(t *Turn) {
		t.Source = source
	}
}

// WithModel sets the generating model.
func WithModel(model string) Option {
	return func(t *Turn) {
		t.Model = model
	}
}

// WithConfidence sets the confidence score.
func WithConfidence(confidence float64) Option {
	return func(t *Turn) {
		t.Confidence = confidence
	}
}

// WithTags sets semantic tags.
func WithTags(tags ...string) Option {
	return func(t *Turn) {
		t.Tags = tags
	}
}

// WithTimestamp overrides the turn timestamp (defaults to time.Now).
func WithTimestamp(ts time.Time) Option {
	return func(t *Turn) {
		t.Timestamp = ts
	}
}

// WithTokenCount overrides the estimated token count.
func WithTokenCount(n int) Option {
	return func(t *Turn) {
		t.TokenCount = n
	}
}

// New creates a Turn with its content-addressed ID computed eagerly.
func New(content string, turnType Type, opts ...Option) Turn {
	t := Turn{
		Content:   content,
		Type:      turnType,
		Timestamp: time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(&t)
	}

	if t.TokenCount == 0 {
		t.TokenCount = EstimateTokens(content)
	}

	t.ID = computeID(turnType, content, t.ParentIDs)
	return t
}

// computeID hashes type + content + ordered parents into a hex digest.
func computeID(turnType Type, content string, parentIDs []string) string {
	h, err := blake2b.New(idDigestSize, nil)
	if err != nil {
		// blake2b.New only errors on invalid key/size; both are fixed here.
		panic("turn: blake2b init: " + err.Error())
	}

	h.Write([]byte(string(turnType)))
	h.Write([]byte(":"))
	h.Write([]byte(content))
	h.Write([]byte(":"))
	h.Write([]byte(strings.Join(parentIDs, ",")))

	return hex.EncodeToString(h.Sum(nil))
}

// EstimateTokens roughly estimates the token count of text (words * 1.3).
// Returns 0 for empty text, otherwise at least 1.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}

	estimate := int(math.Round(float64(words) * 1.3))
	if estimate < 1 {
		return 1
	}

	return estimate
}

// IsCompressible reports whether this turn may be summarized away.
// System context, summaries, learnings, and checkpoints are kept verbatim.
func (t Turn) IsCompressible() bool {
	switch t.Type {
	case TypeUser, TypeAssistant, TypeToolResult:
		return true
	default:
		return false
	}
}

// Compress creates a new SUMMARY turn referencing this turn via ParentIDs.
// The original turn is untouched.
func (t Turn) Compress(summary string) Turn {
	return New(
		summary,
		TypeSummary,
		WithParents(t.ID),
		WithSource("compressed:"+t.ID),
		WithTags(t.Tags...),
	)
}

// Message is the LLM message form of a turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToMessage converts the turn to LLM message format.
func (t Turn) ToMessage() Message {
	role := "user"
	switch t.Type {
	case TypeUser:
		role = "user"
	case TypeAssistant, TypeToolCall:
		role = "assistant"
	case TypeToolResult:
		role = "tool"
	case TypeSystem, TypeSummary, TypeLearning, TypeCheckpoint:
		role = "system"
	}

	return Message{Role: role, Content: t.Content}
}
