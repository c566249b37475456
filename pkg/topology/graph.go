package topology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/fsutil"
)

const (
	nodesFile = "nodes.json"
	graphFile = "graph.json"
)

// NotFoundError indicates the requested node does not exist.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("topology node not found: %s", e.ID)
}

// Stats summarizes the graph population.
type Stats struct {
	Nodes       int `json:"nodes"`
	EntityNodes int `json:"entity_nodes"`
	MemoryNodes int `json:"memory_nodes"`
	Edges       int `json:"edges"`
}

// Store is the in-memory topology graph with JSON persistence.
//
// Edges are append-only and idempotent: adding an edge whose
// (source, target, type) already exists merges weight instead of
// duplicating. Nodes merge on re-add so repeated extraction passes
// accumulate mention counts rather than clobbering.
type Store struct {
	dir    string
	logger *zap.Logger

	mu       sync.RWMutex
	nodes    map[string]*Node
	edges    map[string]*Edge
	outgoing map[string][]string // node ID -> edge keys
	incoming map[string][]string
}

// NewStore creates a Store rooted at dir, loading any persisted graph.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating topology directory: %w", err)
	}

	s := &Store{
		dir:      dir,
		logger:   logger,
		nodes:    make(map[string]*Node),
		edges:    make(map[string]*Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// AddNode inserts or merges a node. Re-adding an entity node accumulates
// its mention count and union of aliases.
func (s *Store) AddNode(n Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	existing, ok := s.nodes[n.ID]
	if !ok {
		s.nodes[n.ID] = &n
		return
	}

	existing.MentionCount += max(n.MentionCount, 1)
	existing.Aliases = mergeStrings(existing.Aliases, n.Aliases)
	existing.RelatedLearnings = mergeStrings(existing.RelatedLearnings, n.RelatedLearnings)

	if existing.Content == "" {
		existing.Content = n.Content
	}
	if n.Embedding != nil {
		existing.Embedding = n.Embedding
	}
}

// SetSpatial records where a node's content came from.
func (s *Store) SetSpatial(id string, spatial Spatial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return NotFoundError{ID: id}
	}

	n.Spatial = spatial
	return nil
}

// AddEdge appends an edge. Adding a duplicate (source, target, type) is a
// no-op apart from weight accumulation; the edge set size is unchanged.
func (s *Store) AddEdge(e Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.Key()
	if existing, ok := s.edges[key]; ok {
		existing.Weight += e.Weight
		return
	}

	s.edges[key] = &e
	s.outgoing[e.Source] = append(s.outgoing[e.Source], key)
	s.incoming[e.Target] = append(s.incoming[e.Target], key)
}

// Node returns a copy of the node with the given ID.
func (s *Store) Node(id string) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return Node{}, NotFoundError{ID: id}
	}

	return *n, nil
}

// Nodes returns copies of all nodes.
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}

	return out
}

// Outgoing returns copies of the edges leaving a node.
func (s *Store) Outgoing(id string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.edgesForLocked(s.outgoing[id])
}

// Incoming returns copies of the edges arriving at a node.
func (s *Store) Incoming(id string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.edgesForLocked(s.incoming[id])
}

func (s *Store) edgesForLocked(keys []string) []Edge {
	out := make([]Edge, 0, len(keys))
	for _, key := range keys {
		if e, ok := s.edges[key]; ok {
			out = append(out, *e)
		}
	}

	return out
}

// Neighborhood returns the nodes reachable from id within depth hops,
// following edges in both directions. The start node is excluded.
func (s *Store) Neighborhood(id string, depth int) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[id]; !ok {
		return nil
	}

	seen := map[string]bool{id: true}
	frontier := []string{id}

	for hop := 0; hop < depth; hop++ {
		var next []string
		for _, cur := range frontier {
			for _, key := range s.outgoing[cur] {
				if e := s.edges[key]; e != nil && !seen[e.Target] {
					seen[e.Target] = true
					next = append(next, e.Target)
				}
			}
			for _, key := range s.incoming[cur] {
				if e := s.edges[key]; e != nil && !seen[e.Source] {
					seen[e.Source] = true
					next = append(next, e.Source)
				}
			}
		}
		frontier = next
	}

	delete(seen, id)

	ids := make([]string, 0, len(seen))
	for nid := range seen {
		ids = append(ids, nid)
	}
	sort.Strings(ids)

	out := make([]Node, 0, len(ids))
	for _, nid := range ids {
		if n, ok := s.nodes[nid]; ok {
			out = append(out, *n)
		}
	}

	return out
}

// FindContradictions returns all CONTRADICTS edges.
func (s *Store) FindContradictions() []Edge {
	return s.edgesByType(RelationContradicts)
}

// FindElaborations returns all ELABORATES edges.
func (s *Store) FindElaborations() []Edge {
	return s.edgesByType(RelationElaborates)
}

func (s *Store) edgesByType(rt RelationType) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Edge
	for _, e := range s.edges {
		if e.Type == rt {
			out = append(out, *e)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})

	return out
}

// Stats reports node and edge counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Nodes: len(s.nodes), Edges: len(s.edges)}
	for _, n := range s.nodes {
		switch n.Kind {
		case KindEntity:
			st.EntityNodes++
		case KindMemory:
			st.MemoryNodes++
		}
	}

	return st
}

// Save persists the graph as two JSON files: the node set and an edge
// list. Both writes are atomic.
func (s *Store) Save() error {
	s.mu.RLock()

	nodes := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, *e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Key() < edges[j].Key() })

	s.mu.RUnlock()

	if err := fsutil.WriteJSONAtomic(filepath.Join(s.dir, nodesFile), nodes); err != nil {
		return fmt.Errorf("saving topology nodes: %w", err)
	}

	if err := fsutil.WriteJSONAtomic(filepath.Join(s.dir, graphFile), edges); err != nil {
		return fmt.Errorf("saving topology edges: %w", err)
	}

	s.logger.Debug("saved topology graph",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)

	return nil
}

func (s *Store) load() error {
	var nodes []Node
	if err := fsutil.ReadJSON(filepath.Join(s.dir, nodesFile), &nodes); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("loading topology nodes: %w", err)
		}
	}

	for i := range nodes {
		n := nodes[i]
		s.nodes[n.ID] = &n
	}

	var edges []Edge
	if err := fsutil.ReadJSON(filepath.Join(s.dir, graphFile), &edges); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("loading topology edges: %w", err)
		}
	}

	for _, e := range edges {
		edge := e
		key := edge.Key()
		if _, ok := s.edges[key]; ok {
			continue
		}
		s.edges[key] = &edge
		s.outgoing[edge.Source] = append(s.outgoing[edge.Source], key)
		s.incoming[edge.Target] = append(s.incoming[edge.Target], key)
	}

	return nil
}

func mergeStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}

	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}

	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			a = append(a, v)
		}
	}

	return a
}
