package simulacrum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/chunk"
	"github.com/papercomputeco/simulacrum/pkg/embeddings"
	"github.com/papercomputeco/simulacrum/pkg/episode"
	"github.com/papercomputeco/simulacrum/pkg/eventstream"
	"github.com/papercomputeco/simulacrum/pkg/fsutil"
	"github.com/papercomputeco/simulacrum/pkg/retrieval"
	"github.com/papercomputeco/simulacrum/pkg/summarize"
	"github.com/papercomputeco/simulacrum/pkg/topology"
	"github.com/papercomputeco/simulacrum/pkg/turn"
	"github.com/papercomputeco/simulacrum/pkg/vector"
)

const (
	chunksDir     = "chunks"
	topologyDir   = "topology"
	learningsFile = "learnings.json"

	// defaultAutoWireEvery is how many sealed chunks accumulate between
	// topology auto-wiring passes.
	defaultAutoWireEvery = 5

	// autoWireWindow bounds how many recent chunks one wiring pass reads.
	autoWireWindow = 20
)

// Config configures a Store.
type Config struct {
	// SessionID identifies the owning session in emitted events.
	SessionID string

	// MicroChunkSize, HotChunks, WarmRetentionDays, and MaxWarmChunks
	// tune the chunk lifecycle; zero values take the chunk package
	// defaults.
	MicroChunkSize    int
	HotChunks         int
	WarmRetentionDays int
	MaxWarmChunks     int

	// Budget is the retrieval token budget. Zero Total takes a default.
	Budget retrieval.Budget

	// AutoWireEvery is the number of sealed chunks between topology
	// wiring passes.
	AutoWireEvery int
}

// Option configures optional collaborators on a Store.
type Option func(*Store)

// WithSummarizer sets the chunk summarizer. Defaults to the heuristic.
func WithSummarizer(s summarize.Summarizer) Option {
	return func(st *Store) { st.summarizer = s }
}

// WithEmbedder sets the embedding provider.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(st *Store) { st.embedder = e }
}

// WithVectorDriver sets the vector index.
func WithVectorDriver(d vector.VectorDriver) Option {
	return func(st *Store) { st.vectors = d }
}

// WithPublisher sets the eventstream publisher.
func WithPublisher(p eventstream.Publisher) Option {
	return func(st *Store) { st.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// Store is the aggregate root of the memory engine for one session. It
// owns the chunk manager, topology store, episode log, and learnings,
// and exposes the ingest/query/persist surface the agent layer uses.
//
// A Store is owned by a single session: one writer appending turns, any
// number of concurrent readers running retrieval.
type Store struct {
	dir    string
	cfg    Config
	logger *zap.Logger

	chunks    *chunk.Manager
	topo      *topology.Store
	extractor *topology.Extractor
	episodes  *episode.Manager

	summarizer summarize.Summarizer
	embedder   embeddings.Embedder
	vectors    vector.VectorDriver
	publisher  eventstream.Publisher

	semantic  *retrieval.SemanticRetriever
	assembler *retrieval.Assembler
	planner   *retrieval.PlanningRetriever

	pool *pool

	mu          sync.RWMutex
	learnings   map[string]turn.Learning
	sealedCount int
}

// Open creates or reopens the memory store rooted at dir, loading all
// persisted state.
func Open(dir string, cfg Config, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store requires a directory")
	}

	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.AutoWireEvery <= 0 {
		cfg.AutoWireEvery = defaultAutoWireEvery
	}
	if cfg.Budget.Total == 0 {
		cfg.Budget = retrieval.DefaultBudget(32000)
	}

	st := &Store{
		dir:        dir,
		cfg:        cfg,
		logger:     zap.NewNop(),
		summarizer: summarize.NewHeuristic(),
		learnings:  make(map[string]turn.Learning),
	}

	for _, opt := range opts {
		opt(st)
	}

	var err error
	st.chunks, err = chunk.NewManager(chunk.Config{
		Dir:               filepath.Join(dir, chunksDir),
		MicroChunkSize:    cfg.MicroChunkSize,
		HotChunks:         cfg.HotChunks,
		WarmRetentionDays: cfg.WarmRetentionDays,
		MaxWarmChunks:     cfg.MaxWarmChunks,
		Logger:            st.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening chunk manager: %w", err)
	}

	st.topo, err = topology.NewStore(filepath.Join(dir, topologyDir), st.logger)
	if err != nil {
		return nil, fmt.Errorf("opening topology store: %w", err)
	}
	st.extractor = topology.NewExtractor(st.topo, st.logger)

	st.episodes, err = episode.NewManager(dir, st.logger)
	if err != nil {
		return nil, fmt.Errorf("opening episode log: %w", err)
	}

	if err := st.loadLearnings(); err != nil {
		return nil, err
	}

	st.semantic = retrieval.NewSemanticRetriever(st.embedder, st.vectors, st.logger)
	st.assembler = retrieval.NewAssembler(cfg.Budget, st.logger)
	st.planner = retrieval.NewPlanningRetriever(st.semantic, st.episodes, st.logger)

	st.pool, err = newPool(&poolConfig{
		chunks:     st.chunks,
		extractor:  st.extractor,
		summarizer: st.summarizer,
		embedder:   st.embedder,
		vectors:    st.vectors,
		publisher:  st.publisher,
		sessionID:  cfg.SessionID,
		logger:     st.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("starting maintenance pool: %w", err)
	}

	st.logger.Info("memory store opened",
		zap.String("dir", dir),
		zap.String("session_id", cfg.SessionID),
		zap.Int("chunks", st.chunks.Stats().TotalChunks),
		zap.Int("learnings", len(st.learnings)),
		zap.Int("episodes", st.episodes.Count()),
	)

	return st, nil
}

// AddTurn appends a turn to the active micro chunk. Compression,
// summarization, embedding, and publishing all happen on the maintenance
// pool; this call never blocks on them.
func (st *Store) AddTurn(t turn.Turn) {
	sealed := st.chunks.AddTurns(t)

	st.pool.enqueue(job{kind: jobTurnPersisted, turn: t})

	for _, c := range sealed {
		st.pool.enqueue(job{kind: jobChunkSealed, chunk: c})
	}

	if len(sealed) > 0 {
		st.mu.Lock()
		st.sealedCount += len(sealed)
		wire := st.sealedCount >= st.cfg.AutoWireEvery
		if wire {
			st.sealedCount = 0
		}
		st.mu.Unlock()

		if wire {
			st.pool.enqueue(job{kind: jobAutoWire, candidates: st.recentCandidates()})
		}
	}
}

// recentCandidates snapshots a bounded window of recent chunk content
// for a topology wiring pass.
func (st *Store) recentCandidates() []topology.Candidate {
	var out []topology.Candidate
	for _, c := range st.chunks.RecentChunks(autoWireWindow) {
		text := c.Summary
		if text == "" && c.Turns != nil {
			for _, t := range c.Turns {
				text += t.Content + "\n"
			}
		}
		if text == "" {
			continue
		}
		out = append(out, topology.Candidate{ID: c.ID, Text: text})
	}
	return out
}

// AddLearning records an extracted learning, deduplicating on its
// content-addressed ID.
func (st *Store) AddLearning(fact string, category turn.Category, confidence float64, sourceTurns ...string) turn.Learning {
	l := turn.NewLearning(fact, category, confidence, sourceTurns...)

	st.mu.Lock()
	if existing, ok := st.learnings[l.ID]; ok {
		st.mu.Unlock()
		return existing
	}
	st.learnings[l.ID] = l
	st.mu.Unlock()

	if st.embedder != nil && st.vectors != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if vecs, err := st.embedder.Embed(ctx, []string{l.Fact}); err == nil && len(vecs) == 1 {
			doc := vector.Document{ID: l.ID, Kind: "learning", Text: l.Fact, Embedding: vecs[0]}
			if err := st.vectors.Add(ctx, []vector.Document{doc}); err != nil {
				st.logger.Warn("indexing learning failed", zap.String("learning_id", l.ID), zap.Error(err))
			}
		}
	}

	return l
}

// Learnings returns a copy of all recorded learnings.
func (st *Store) Learnings() []turn.Learning {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]turn.Learning, 0, len(st.learnings))
	for _, l := range st.learnings {
		out = append(out, l)
	}
	return out
}

// AddEpisode records a completed attempt in the episode log.
func (st *Store) AddEpisode(summary string, outcome episode.Outcome, learnings, models []string, turnCount int) (string, error) {
	id, err := st.episodes.Add(summary, outcome, learnings, models, turnCount)
	if err != nil {
		return "", err
	}

	if st.publisher != nil {
		event := &eventstream.MemoryEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeEpisodeRecorded,
			EventID:       uuid.NewString(),
			EmittedAt:     time.Now().UTC(),
			Source:        eventstream.EventSource{SessionID: st.cfg.SessionID},
			Episode: &eventstream.EpisodeMeta{
				EpisodeID: id,
				Outcome:   string(outcome),
				TurnCount: turnCount,
			},
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.publisher.Publish(ctx, event); err != nil {
			st.logger.Warn("publishing episode event failed", zap.Error(err))
		}
	}

	return id, nil
}

// Episodes returns the most recent episodes, newest first.
func (st *Store) Episodes(limit int) []episode.Episode {
	return st.episodes.Episodes(limit)
}

// GetRelevant runs retrieval across the hot tier, the vector index, and
// the topology graph for a query. It never fails; missing collaborators
// or empty stores just produce an emptier bundle.
func (st *Store) GetRelevant(ctx context.Context, query string) retrieval.MemoryContext {
	mc := retrieval.MemoryContext{}

	// Recent hot turns.
	mc.Turns = st.recentTurns(20)

	// Semantic matches across chunks and learnings.
	for _, res := range st.semantic.Retrieve(ctx, query, 10) {
		switch res.Kind {
		case "learning":
			st.mu.RLock()
			l, ok := st.learnings[res.ID]
			st.mu.RUnlock()
			if ok {
				if l.Category == turn.CategoryHeuristic {
					mc.Heuristics = append(mc.Heuristics, l)
				} else {
					mc.Learnings = append(mc.Learnings, l)
				}
			}
		case "chunk":
			if c, err := st.chunks.Get(res.ID); err == nil && c.Summary != "" {
				mc.Turns = append(mc.Turns, turn.New(c.Summary, turn.TypeSummary))
			}
		}
	}

	// Topology neighborhood around entities named in the query.
	for _, e := range topology.ExtractEntities(query) {
		id := topology.EntityID(e.Type, e.Name)
		for _, n := range st.topo.Neighborhood(id, 1) {
			if n.Kind == topology.KindMemory {
				mc.CodeChunks = append(mc.CodeChunks, n)
			}
		}
		if n, err := st.topo.Node(id); err == nil {
			mc.FocusTopics = append(mc.FocusTopics, n.CanonicalName)
		}
	}

	// A few recent episodes for grounding.
	mc.Episodes = st.episodes.Episodes(5)

	return mc
}

// recentTurns returns pending turns plus the contents of recent hot
// chunks, oldest first, bounded by limit.
func (st *Store) recentTurns(limit int) []turn.Turn {
	var out []turn.Turn

	for _, c := range st.chunks.RecentChunks(st.cfg.HotChunks + 2) {
		if c.Turns != nil {
			out = append(c.Turns, out...)
		}
	}

	out = append(out, st.chunks.PendingTurns()...)

	if len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out
}

// AssembleContext renders a retrieval bundle into budgeted prompt text.
func (st *Store) AssembleContext(system string, mc retrieval.MemoryContext) string {
	sections := retrieval.Sections{System: system}

	for _, t := range mc.Turns {
		sections.Recent = append(sections.Recent, retrieval.Item{
			Text:      fmt.Sprintf("%s: %s", t.Type, t.Content),
			Relevance: float64(t.Timestamp.UnixNano()),
		})
	}

	for _, n := range mc.CodeChunks {
		sections.Retrieved = append(sections.Retrieved, retrieval.Item{
			Text:      n.Content,
			Relevance: float64(n.MentionCount),
		})
	}

	for _, l := range append(mc.Learnings, mc.Heuristics...) {
		sections.Learnings = append(sections.Learnings, retrieval.Item{
			Text:      l.ToTurn().Content,
			Relevance: l.Confidence,
		})
	}

	return st.assembler.Assemble(sections)
}

// RetrieveForPlanning categorizes stored knowledge against a goal.
func (st *Store) RetrieveForPlanning(ctx context.Context, goal string) retrieval.PlanningContext {
	return st.planner.Retrieve(ctx, goal, st.Learnings())
}

// Maintain runs the periodic lifecycle pass: warm chunk eviction and
// archive cleanup. Demotions are published when a publisher is set.
func (st *Store) Maintain(ctx context.Context, now time.Time) error {
	before := tierIndex(st.chunks.WarmChunks())

	demoted, err := st.chunks.MaybeDemoteWarmToCold(now)
	if err != nil {
		return fmt.Errorf("warm eviction: %w", err)
	}

	if demoted > 0 && st.publisher != nil {
		for id := range before {
			c, err := st.chunks.Get(id)
			if err != nil || c.Tier() != chunk.TierCold {
				continue
			}

			event := &eventstream.MemoryEvent{
				SchemaVersion: eventstream.SchemaVersionV1,
				EventType:     eventstream.EventTypeChunkDemoted,
				EventID:       uuid.NewString(),
				EmittedAt:     time.Now().UTC(),
				Source:        eventstream.EventSource{SessionID: st.cfg.SessionID},
				Chunk: &eventstream.ChunkMeta{
					ChunkID:    c.ID,
					ChunkType:  string(c.Type),
					FromTier:   string(chunk.TierWarm),
					ToTier:     string(chunk.TierCold),
					TokenCount: c.TokenCount,
					ArchiveRef: c.ContentRef,
				},
			}

			if err := st.publisher.Publish(ctx, event); err != nil {
				st.logger.Warn("publishing demotion event failed", zap.Error(err))
			}
		}
	}

	if _, err := st.chunks.CleanupExpiredArchives(); err != nil {
		st.logger.Warn("archive cleanup failed", zap.Error(err))
	}

	return nil
}

func tierIndex(chunks []chunk.Chunk) map[string]bool {
	out := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		out[c.ID] = true
	}
	return out
}

// Stats aggregates the state of every subsystem.
type Stats struct {
	Chunks    chunk.Stats    `json:"chunks"`
	Topology  topology.Stats `json:"topology"`
	Episodes  int            `json:"episodes"`
	Learnings int            `json:"learnings"`
	Pending   int            `json:"pending_turns"`
}

// Stats reports the store's current population.
func (st *Store) Stats() Stats {
	st.mu.RLock()
	learnings := len(st.learnings)
	st.mu.RUnlock()

	return Stats{
		Chunks:    st.chunks.Stats(),
		Topology:  st.topo.Stats(),
		Episodes:  st.episodes.Count(),
		Learnings: learnings,
		Pending:   len(st.chunks.PendingTurns()),
	}
}

// Save persists chunk state (sealed metadata and the pending turn run),
// the topology graph, and learnings. Safe to call repeatedly; each file
// is written atomically.
func (st *Store) Save() error {
	if err := st.chunks.Save(); err != nil {
		return err
	}

	if err := st.topo.Save(); err != nil {
		return err
	}

	return st.saveLearnings()
}

func (st *Store) saveLearnings() error {
	st.mu.RLock()
	out := make([]turn.Learning, 0, len(st.learnings))
	for _, l := range st.learnings {
		out = append(out, l)
	}
	st.mu.RUnlock()

	if err := fsutil.WriteJSONAtomic(filepath.Join(st.dir, learningsFile), out); err != nil {
		return fmt.Errorf("saving learnings: %w", err)
	}

	return nil
}

func (st *Store) loadLearnings() error {
	var loaded []turn.Learning
	if err := fsutil.ReadJSON(filepath.Join(st.dir, learningsFile), &loaded); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading learnings: %w", err)
	}

	for _, l := range loaded {
		st.learnings[l.ID] = l
	}

	return nil
}

// Close drains the maintenance pool and persists all state.
func (st *Store) Close() error {
	st.pool.close()
	return st.Save()
}
