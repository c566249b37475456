// Package topology maintains the relationship graph built over memory
// content: entity and memory nodes joined by typed, append-only edges.
//
// The graph holds only IDs and extracted text, never owning turn or chunk
// content. Edge insertion is idempotent on (source, target, type), which
// makes concurrent extraction passes over overlapping windows safe without
// coordination.
package topology

import (
	"fmt"
	"time"
)

// Kind distinguishes node roles in the graph.
type Kind string

const (
	// KindEntity is a named thing mentioned in memory: a file, a library,
	// a concept.
	KindEntity Kind = "entity"

	// KindMemory is a piece of remembered content: a chunk summary, a
	// document section.
	KindMemory Kind = "memory"
)

// EntityType classifies what an entity node refers to.
type EntityType string

const (
	EntityFile    EntityType = "file"
	EntityTech    EntityType = "tech"
	EntityConcept EntityType = "concept"
	EntityPerson  EntityType = "person"
	EntitySymbol  EntityType = "symbol"
)

// RelationType classifies an edge.
type RelationType string

const (
	RelationMentions    RelationType = "mentions"
	RelationCoOccurs    RelationType = "co_occurs"
	RelationAliasOf     RelationType = "alias_of"
	RelationElaborates  RelationType = "elaborates"
	RelationContradicts RelationType = "contradicts"
)

// Spatial records where in a source artifact a node's content came from.
type Spatial struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Section string `json:"section,omitempty"`
}

// Facets are retrieval-oriented tags on a node.
type Facets struct {
	// Persona scopes the node to an agent persona, when set.
	Persona string `json:"persona,omitempty"`

	// DocumentType tags ingested documents (markdown, code, note).
	DocumentType string `json:"document_type,omitempty"`

	// Verification records whether the content has been confirmed
	// (unverified, verified, stale).
	Verification string `json:"verification,omitempty"`

	Topics []string `json:"topics,omitempty"`
}

// Node is a vertex in the topology graph.
//
// Entity nodes carry the entity-specific fields; memory nodes leave them
// zero. Cross-references are IDs only.
type Node struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`

	Spatial Spatial `json:"spatial,omitempty"`
	Facets  Facets  `json:"facets,omitempty"`

	// Embedding is an optional vector for semantic lookup.
	Embedding []float32 `json:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Entity fields.
	EntityType       EntityType `json:"entity_type,omitempty"`
	CanonicalName    string     `json:"canonical_name,omitempty"`
	Aliases          []string   `json:"aliases,omitempty"`
	MentionCount     int        `json:"mention_count,omitempty"`
	RelatedLearnings []string   `json:"related_learnings,omitempty"`
}

// Edge is a typed, directed relationship between two nodes.
type Edge struct {
	Source string       `json:"source"`
	Target string       `json:"target"`
	Type   RelationType `json:"type"`

	// Weight accumulates signal strength across extraction passes.
	Weight float64 `json:"weight,omitempty"`
}

// Key is the identity an edge is deduplicated on.
func (e Edge) Key() string {
	return fmt.Sprintf("%s|%s|%s", e.Source, e.Target, e.Type)
}
