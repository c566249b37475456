package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/ctf"
	"github.com/papercomputeco/simulacrum/pkg/fsutil"
	"github.com/papercomputeco/simulacrum/pkg/turn"
)

const (
	// DefaultMicroChunkSize is how many turns accumulate before a micro
	// chunk is sealed.
	DefaultMicroChunkSize = 10

	// DefaultHotChunks is how many sealed chunks stay in the hot tier.
	DefaultHotChunks = 2

	// DefaultWarmRetentionDays is how long a warm chunk may age before
	// demotion to cold.
	DefaultWarmRetentionDays = 14

	// DefaultMaxWarmChunks caps the warm tier regardless of age.
	DefaultMaxWarmChunks = 50
)

const (
	metadataFile = "chunks.json"
	pendingFile  = "pending.json"
	archiveDir   = "archive"

	// ArchiveSuffix is the file suffix of archived chunk blobs.
	ArchiveSuffix = ".json.gz"
)

// Config configures a chunk Manager.
type Config struct {
	// Dir is the root directory for chunk metadata and archives.
	Dir string

	// MicroChunkSize is the number of turns per sealed micro chunk.
	MicroChunkSize int

	// HotChunks is the number of sealed chunks kept in the hot tier.
	HotChunks int

	// WarmRetentionDays is the age threshold for warm to cold demotion.
	WarmRetentionDays int

	// MaxWarmChunks caps the warm tier size after age-based demotion.
	MaxWarmChunks int

	Logger *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.MicroChunkSize <= 0 {
		c.MicroChunkSize = DefaultMicroChunkSize
	}
	if c.HotChunks <= 0 {
		c.HotChunks = DefaultHotChunks
	}
	if c.WarmRetentionDays <= 0 {
		c.WarmRetentionDays = DefaultWarmRetentionDays
	}
	if c.MaxWarmChunks <= 0 {
		c.MaxWarmChunks = DefaultMaxWarmChunks
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Stats summarizes the chunk population.
type Stats struct {
	TotalChunks int `json:"total_chunks"`
	MicroChunks int `json:"micro_chunks"`
	MacroChunks int `json:"macro_chunks"`
	TotalTokens int `json:"total_tokens"`
}

// Manager owns the chunk map and drives the hot/warm/cold lifecycle.
//
// Mutation happens on ingestion and demotion; readers get copies, so a
// retrieval call running concurrently with an append sees a consistent
// snapshot.
type Manager struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.RWMutex
	chunks  map[string]*Chunk
	pending []turn.Turn

	// nextOrdinal is the turn ordinal the next sealed chunk starts at.
	nextOrdinal int
}

// NewManager creates a Manager rooted at cfg.Dir, loading any previously
// persisted chunk metadata.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("chunk manager requires a directory")
	}

	cfg.applyDefaults()

	if err := os.MkdirAll(filepath.Join(cfg.Dir, archiveDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating chunk directories: %w", err)
	}

	m := &Manager{
		cfg:    cfg,
		logger: cfg.Logger,
		chunks: make(map[string]*Chunk),
	}

	if err := m.load(); err != nil {
		return nil, err
	}

	return m, nil
}

// AddTurns appends turns to the pending run, sealing a micro chunk every
// MicroChunkSize turns and demoting hot chunks beyond the hot cap to warm.
// It never touches the archive, so ingestion never waits on disk.
func (m *Manager) AddTurns(turns ...turn.Turn) []Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sealed []Chunk

	m.pending = append(m.pending, turns...)
	for len(m.pending) >= m.cfg.MicroChunkSize {
		run := make([]turn.Turn, m.cfg.MicroChunkSize)
		copy(run, m.pending[:m.cfg.MicroChunkSize])
		m.pending = m.pending[m.cfg.MicroChunkSize:]

		sealed = append(sealed, m.sealLocked(run))
	}

	m.demoteHotOverflowLocked()
	return sealed
}

func (m *Manager) sealLocked(run []turn.Turn) Chunk {
	c := NewChunk(run, m.nextOrdinal)
	m.nextOrdinal += len(run)
	m.chunks[c.ID] = &c

	m.logger.Debug("sealed micro chunk",
		zap.String("chunk_id", c.ID),
		zap.Int("turns", len(run)),
		zap.Int("tokens", c.TokenCount),
	)

	return c.clone()
}

// demoteHotOverflowLocked keeps only the newest HotChunks chunks hot,
// demoting older ones to the warm tier.
func (m *Manager) demoteHotOverflowLocked() {
	hot := m.byTierLocked(TierHot)
	if len(hot) <= m.cfg.HotChunks {
		return
	}

	// Oldest first; everything past the cap demotes.
	for _, c := range hot[:len(hot)-m.cfg.HotChunks] {
		m.demoteToWarmLocked(c)
	}
}

func (m *Manager) demoteToWarmLocked(c *Chunk) {
	if c.Turns == nil {
		return
	}

	c.ContentCTF = ctf.Encode(c.Turns)
	c.Turns = nil

	m.logger.Debug("demoted chunk to warm", zap.String("chunk_id", c.ID))
}

// PendingTurns returns a copy of the not-yet-sealed turn run.
func (m *Manager) PendingTurns() []turn.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]turn.Turn, len(m.pending))
	copy(out, m.pending)
	return out
}

// Get returns a copy of the chunk with the given ID.
func (m *Manager) Get(id string) (Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.chunks[id]
	if !ok {
		return Chunk{}, NotFoundError{ID: id}
	}

	return c.clone(), nil
}

// RecentChunks returns up to limit chunks, newest by range start first.
func (m *Manager) RecentChunks(limit int) []Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sortedByStartLocked()

	out := make([]Chunk, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i].clone())
	}

	return out
}

// WarmChunks returns copies of all warm tier chunks, oldest first.
func (m *Manager) WarmChunks() []Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Chunk
	for _, c := range m.byTierLocked(TierWarm) {
		out = append(out, c.clone())
	}

	return out
}

// DemoteToWarm replaces a hot chunk's turn list with its CTF encoding.
func (m *Manager) DemoteToWarm(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok {
		return NotFoundError{ID: id}
	}

	m.demoteToWarmLocked(c)
	return nil
}

// DemoteToCold archives a chunk's content to a compressed blob and clears
// the in-memory forms. The archive write is atomic; a crash mid-write
// leaves the chunk in its prior tier.
func (m *Manager) DemoteToCold(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.demoteToColdLocked(id)
}

// DemoteToMacro archives a chunk like DemoteToCold and reclassifies it as
// a macro chunk.
func (m *Manager) DemoteToMacro(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.demoteToColdLocked(id); err != nil {
		return err
	}

	m.chunks[id].Type = TypeMacro
	return nil
}

func (m *Manager) demoteToColdLocked(id string) error {
	c, ok := m.chunks[id]
	if !ok {
		return NotFoundError{ID: id}
	}

	if c.ContentRef != "" {
		return nil // already archived
	}

	turns, err := m.materialize(c)
	if err != nil {
		return err
	}

	ref := filepath.Join(archiveDir, c.ID+ArchiveSuffix)
	if err := fsutil.WriteGzipJSONAtomic(filepath.Join(m.cfg.Dir, ref), turns); err != nil {
		return fmt.Errorf("archiving chunk %s: %w", c.ID, err)
	}

	c.Turns = nil
	c.ContentCTF = ""
	c.ContentRef = ref

	m.logger.Info("demoted chunk to cold",
		zap.String("chunk_id", c.ID),
		zap.String("archive", ref),
	)

	return nil
}

// ExpandChunk reconstructs a chunk's turn list from whichever content form
// it holds. This is a pure read; tier membership is unchanged.
func (m *Manager) ExpandChunk(id string) ([]turn.Turn, error) {
	m.mu.RLock()
	c, ok := m.chunks[id]
	if !ok {
		m.mu.RUnlock()
		return nil, NotFoundError{ID: id}
	}
	snapshot := c.clone()
	m.mu.RUnlock()

	// Archive reads happen outside the lock.
	return m.materialize(&snapshot)
}

func (m *Manager) materialize(c *Chunk) ([]turn.Turn, error) {
	switch {
	case c.Turns != nil:
		out := make([]turn.Turn, len(c.Turns))
		copy(out, c.Turns)
		return out, nil

	case c.ContentCTF != "":
		return ctf.Decode(c.ContentCTF), nil

	case c.ContentRef != "":
		var turns []turn.Turn
		if err := fsutil.ReadGzipJSON(filepath.Join(m.cfg.Dir, c.ContentRef), &turns); err != nil {
			return nil, fmt.Errorf("expanding chunk %s: %w", c.ID, err)
		}
		return turns, nil

	default:
		return nil, fmt.Errorf("chunk %s: %w", c.ID, ErrNoContent)
	}
}

// MaybeDemoteWarmToCold applies the eviction policy to the warm tier.
//
// Two independent triggers run in order. First, any warm chunk whose run
// ended more than WarmRetentionDays before now is demoted. Then, if the
// warm tier still exceeds MaxWarmChunks, the oldest chunks by range start
// are demoted until the cap holds.
func (m *Manager) MaybeDemoteWarmToCold(now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	demoted := 0
	cutoff := now.AddDate(0, 0, -m.cfg.WarmRetentionDays)

	for _, c := range m.byTierLocked(TierWarm) {
		if c.EndedAt.Before(cutoff) {
			if err := m.demoteToColdLocked(c.ID); err != nil {
				return demoted, err
			}
			demoted++
		}
	}

	warm := m.byTierLocked(TierWarm)
	for len(warm) > m.cfg.MaxWarmChunks {
		if err := m.demoteToColdLocked(warm[0].ID); err != nil {
			return demoted, err
		}
		demoted++
		warm = warm[1:]
	}

	if demoted > 0 {
		m.logger.Info("warm eviction pass complete", zap.Int("demoted", demoted))
	}

	return demoted, nil
}

// SetSummary attaches a summarizer result to a chunk.
func (m *Manager) SetSummary(id, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok {
		return NotFoundError{ID: id}
	}

	c.Summary = summary
	return nil
}

// SetEmbedding attaches a vector to a chunk.
func (m *Manager) SetEmbedding(id string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok {
		return NotFoundError{ID: id}
	}

	c.Embedding = make([]float32, len(embedding))
	copy(c.Embedding, embedding)
	return nil
}

// Stats reports chunk population counts and the token total.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	for _, c := range m.chunks {
		s.TotalChunks++
		s.TotalTokens += c.TokenCount

		switch c.Type {
		case TypeMicro:
			s.MicroChunks++
		case TypeMacro:
			s.MacroChunks++
		}
	}

	return s
}

// Save persists chunk metadata and the pending turn run atomically.
// Pending turns have not sealed into a chunk yet, so they get their own
// file; losing them across process restarts would drop appended turns.
// Archive blobs are already on disk by the time a chunk references them.
func (m *Manager) Save() error {
	m.mu.RLock()
	all := m.sortedByStartLocked()

	out := make([]Chunk, 0, len(all))
	for _, c := range all {
		out = append(out, c.clone())
	}

	pending := make([]turn.Turn, len(m.pending))
	copy(pending, m.pending)
	m.mu.RUnlock()

	if err := fsutil.WriteJSONAtomic(filepath.Join(m.cfg.Dir, metadataFile), out); err != nil {
		return fmt.Errorf("saving chunk metadata: %w", err)
	}

	if err := fsutil.WriteJSONAtomic(filepath.Join(m.cfg.Dir, pendingFile), pending); err != nil {
		return fmt.Errorf("saving pending turns: %w", err)
	}

	return nil
}

func (m *Manager) load() error {
	path := filepath.Join(m.cfg.Dir, metadataFile)

	var loaded []Chunk
	if err := fsutil.ReadJSON(path, &loaded); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading chunk metadata: %w", err)
	}

	for i := range loaded {
		c := loaded[i]
		m.chunks[c.ID] = &c

		if c.Range.End >= m.nextOrdinal {
			m.nextOrdinal = c.Range.End + 1
		}
	}

	var pending []turn.Turn
	if err := fsutil.ReadJSON(filepath.Join(m.cfg.Dir, pendingFile), &pending); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("loading pending turns: %w", err)
		}
	}
	m.pending = pending

	m.logger.Debug("loaded chunk metadata",
		zap.Int("chunks", len(loaded)),
		zap.Int("pending", len(pending)),
	)
	return nil
}

// CleanupExpiredArchives removes archive blobs no chunk references.
// Returns the number of files removed.
func (m *Manager) CleanupExpiredArchives() (int, error) {
	m.mu.RLock()
	referenced := make(map[string]bool, len(m.chunks))
	for _, c := range m.chunks {
		if c.ContentRef != "" {
			referenced[filepath.Base(c.ContentRef)] = true
		}
	}
	m.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(m.cfg.Dir, archiveDir))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("listing archives: %w", err)
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ArchiveSuffix) || referenced[name] {
			continue
		}

		if err := os.Remove(filepath.Join(m.cfg.Dir, archiveDir, name)); err != nil {
			return removed, fmt.Errorf("removing orphaned archive %s: %w", name, err)
		}
		removed++
	}

	if removed > 0 {
		m.logger.Info("removed orphaned archives", zap.Int("count", removed))
	}

	return removed, nil
}

// byTierLocked returns chunks in the given tier ordered by range start.
func (m *Manager) byTierLocked(tier Tier) []*Chunk {
	var out []*Chunk
	for _, c := range m.sortedByStartLocked() {
		if c.Tier() == tier {
			out = append(out, c)
		}
	}
	return out
}

func (m *Manager) sortedByStartLocked() []*Chunk {
	out := make([]*Chunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.Start < out[j].Range.Start
	})

	return out
}
