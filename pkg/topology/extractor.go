package topology

import (
	"encoding/hex"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"golang.org/x/crypto/blake2b"
)

// entityDigestSize is the digest size in bytes for derived node IDs.
const entityDigestSize = 12

var (
	filePattern = regexp.MustCompile(
		`\b[\w./-]+\.(?:go|py|js|ts|tsx|rs|java|rb|c|h|cpp|md|json|yaml|yml|toml|sql|proto|sh)\b`)

	// CamelCase identifiers with at least two words.
	camelPattern = regexp.MustCompile(
		`\b[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]+)+\b`)

	// snake_case identifiers.
	snakePattern = regexp.MustCompile(
		`\b[a-z][a-z0-9]*(?:_[a-z0-9]+)+\b`)
)

// techKeywords are well-known technologies recognized as entities.
var techKeywords = map[string]bool{
	"postgres": true, "postgresql": true, "sqlite": true, "mysql": true,
	"redis": true, "kafka": true, "qdrant": true, "ollama": true,
	"docker": true, "kubernetes": true, "grpc": true, "graphql": true,
	"http": true, "websocket": true, "json": true, "protobuf": true,
	"golang": true, "python": true, "rust": true, "typescript": true,
	"linux": true, "macos": true, "git": true, "github": true,
}

// contradictionMarkers are phrases suggesting a candidate revises or
// rejects earlier content.
var contradictionMarkers = []string{
	"actually", "instead", "no longer", "not anymore", "turns out",
	"contrary to", "that was wrong", "doesn't work", "does not work",
}

const (
	// maxEntitiesPerCandidate bounds extraction work per text.
	maxEntitiesPerCandidate = 20

	// elaborationOverlap is the shared-entity ratio above which two
	// memories are considered to elaborate on each other.
	elaborationOverlap = 0.5

	// coOccurrenceOverlap is the shared-entity ratio above which two
	// memories are linked as co-occurring.
	coOccurrenceOverlap = 0.2
)

// Candidate is one piece of memory content offered for wiring: a chunk
// summary, an ingested section, or similar.
type Candidate struct {
	ID   string
	Text string
}

// Extractor mines entities and relationships out of memory content using
// purely textual heuristics. It never calls out to a model and never
// fails ingestion; candidates that yield nothing are simply skipped.
type Extractor struct {
	store  *Store
	logger *zap.Logger
}

// NewExtractor creates an Extractor writing into store.
func NewExtractor(store *Store, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{store: store, logger: logger}
}

// ExtractEntities returns the recognized entity names in text, bounded
// and deduplicated, preserving first-seen order.
func ExtractEntities(text string) []ExtractedEntity {
	var out []ExtractedEntity
	seen := make(map[string]bool)

	add := func(name string, et EntityType) {
		if len(out) >= maxEntitiesPerCandidate {
			return
		}
		key := strings.ToLower(name)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, ExtractedEntity{Name: name, Type: et})
	}

	for _, match := range filePattern.FindAllString(text, -1) {
		add(match, EntityFile)
	}

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'`")
		if techKeywords[word] {
			add(word, EntityTech)
		}
	}

	for _, match := range camelPattern.FindAllString(text, -1) {
		add(match, EntitySymbol)
	}

	for _, match := range snakePattern.FindAllString(text, -1) {
		add(match, EntitySymbol)
	}

	return out
}

// ExtractedEntity is one recognized entity occurrence.
type ExtractedEntity struct {
	Name string
	Type EntityType
}

// EntityID derives the stable node ID for an entity.
func EntityID(et EntityType, canonicalName string) string {
	h, err := blake2b.New(entityDigestSize, nil)
	if err != nil {
		panic("topology: blake2b init: " + err.Error())
	}

	h.Write([]byte(string(et)))
	h.Write([]byte(":"))
	h.Write([]byte(strings.ToLower(canonicalName)))

	return "ent_" + hex.EncodeToString(h.Sum(nil))
}

// MemoryNodeID derives the node ID for a memory candidate.
func MemoryNodeID(sourceID string) string {
	return "mem_" + sourceID
}

// Extract registers a memory node for the candidate, entity nodes for
// everything recognized in its text, and MENTIONS plus pairwise CO_OCCURS
// edges. Returns the entity node IDs touched.
func (x *Extractor) Extract(c Candidate, facets Facets) []string {
	memID := MemoryNodeID(c.ID)
	x.store.AddNode(Node{
		ID:      memID,
		Kind:    KindMemory,
		Content: c.Text,
		Facets:  facets,
	})

	entities := ExtractEntities(c.Text)
	ids := make([]string, 0, len(entities))

	for _, e := range entities {
		id := EntityID(e.Type, e.Name)
		ids = append(ids, id)

		x.store.AddNode(Node{
			ID:            id,
			Kind:          KindEntity,
			EntityType:    e.Type,
			CanonicalName: e.Name,
			MentionCount:  1,
		})

		x.store.AddEdge(Edge{
			Source: memID,
			Target: id,
			Type:   RelationMentions,
			Weight: 1,
		})
	}

	// Entities appearing in the same memory co-occur.
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			x.store.AddEdge(Edge{
				Source: ids[i],
				Target: ids[j],
				Type:   RelationCoOccurs,
				Weight: 1,
			})
		}
	}

	return ids
}

// AutoWire runs a relationship pass over a bounded window of recent
// candidates, comparing pairs and appending memory-to-memory edges for
// strong textual signals. Safe to re-run over overlapping windows since
// edge insertion is idempotent.
func (x *Extractor) AutoWire(candidates []Candidate, window int) int {
	if window > 0 && len(candidates) > window {
		candidates = candidates[len(candidates)-window:]
	}

	entitySets := make([]map[string]bool, len(candidates))
	for i, c := range candidates {
		set := make(map[string]bool)
		for _, e := range ExtractEntities(c.Text) {
			set[strings.ToLower(e.Name)] = true
		}
		entitySets[i] = set
	}

	added := 0
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			overlap := jaccard(entitySets[i], entitySets[j])
			if overlap < coOccurrenceOverlap {
				continue
			}

			src := MemoryNodeID(candidates[i].ID)
			dst := MemoryNodeID(candidates[j].ID)

			switch {
			case overlap >= elaborationOverlap && hasContradictionMarker(candidates[j].Text):
				x.store.AddEdge(Edge{Source: dst, Target: src, Type: RelationContradicts, Weight: overlap})
			case overlap >= elaborationOverlap:
				x.store.AddEdge(Edge{Source: dst, Target: src, Type: RelationElaborates, Weight: overlap})
			default:
				x.store.AddEdge(Edge{Source: src, Target: dst, Type: RelationCoOccurs, Weight: overlap})
			}
			added++
		}
	}

	if added > 0 {
		x.logger.Debug("auto-wiring pass complete",
			zap.Int("candidates", len(candidates)),
			zap.Int("edges", added),
		)
	}

	return added
}

func hasContradictionMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range contradictionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0
	for k := range a {
		if b[k] {
			shared++
		}
	}

	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}
