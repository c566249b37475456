// Package episode keeps the append-only log of past problem-solving
// attempts and their outcomes. Dead ends recorded here let an agent avoid
// repeating approaches that already failed.
package episode

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/fsutil"
)

// Outcome classifies how an episode ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomePartial   Outcome = "partial"
	OutcomeAbandoned Outcome = "abandoned"
)

// Episode is a record of one past attempt.
type Episode struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`

	// LearningsExtracted lists the learning IDs this episode produced.
	LearningsExtracted []string `json:"learnings_extracted,omitempty"`

	// ModelsUsed lists the models involved in the attempt.
	ModelsUsed []string `json:"models_used,omitempty"`

	TurnCount int `json:"turn_count"`
}

// NotFoundError indicates the requested episode does not exist.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("episode not found: %s", e.ID)
}

const (
	episodesDir  = "episodes"
	episodesFile = "episodes.json"
)

// Manager owns the episode log for a session. The log persists as a flat
// JSON array; writes rewrite the whole file atomically, which is fine at
// the hundreds-to-low-thousands scale a session produces.
type Manager struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	episodes []Episode
}

// NewManager creates a Manager rooted at dir, loading any persisted log.
func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Join(dir, episodesDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating episodes directory: %w", err)
	}

	m := &Manager{
		path:   filepath.Join(dir, episodesDir, episodesFile),
		logger: logger,
	}

	if err := fsutil.ReadJSON(m.path, &m.episodes); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading episode log: %w", err)
	}

	return m, nil
}

// Add appends an episode to the log and persists it. Returns the new
// episode's ID.
func (m *Manager) Add(summary string, outcome Outcome, learnings, models []string, turnCount int) (string, error) {
	ep := Episode{
		ID:                 uuid.NewString(),
		Summary:            summary,
		Outcome:            outcome,
		Timestamp:          time.Now().UTC(),
		LearningsExtracted: learnings,
		ModelsUsed:         models,
		TurnCount:          turnCount,
	}

	m.mu.Lock()
	m.episodes = append(m.episodes, ep)
	snapshot := make([]Episode, len(m.episodes))
	copy(snapshot, m.episodes)
	m.mu.Unlock()

	if err := fsutil.WriteJSONAtomic(m.path, snapshot); err != nil {
		return "", fmt.Errorf("saving episode log: %w", err)
	}

	m.logger.Debug("recorded episode",
		zap.String("episode_id", ep.ID),
		zap.String("outcome", string(outcome)),
	)

	return ep.ID, nil
}

// Episodes returns up to limit episodes, most recent first. A limit of 0
// or less returns everything.
func (m *Manager) Episodes(limit int) []Episode {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// The log is append-only, so reversing it yields most recent first
	// even when timestamps collide.
	out := make([]Episode, 0, len(m.episodes))
	for i := len(m.episodes) - 1; i >= 0; i-- {
		out = append(out, m.episodes[i])
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

// DeadEnds returns all failed episodes, most recent first.
func (m *Manager) DeadEnds() []Episode {
	return m.byOutcome(OutcomeFailed)
}

// SuccessfulPatterns returns all succeeded episodes, most recent first.
func (m *Manager) SuccessfulPatterns() []Episode {
	return m.byOutcome(OutcomeSucceeded)
}

func (m *Manager) byOutcome(outcome Outcome) []Episode {
	var out []Episode
	for _, ep := range m.Episodes(0) {
		if ep.Outcome == outcome {
			out = append(out, ep)
		}
	}

	return out
}

// ByID returns the episode with the given ID.
func (m *Manager) ByID(id string) (Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ep := range m.episodes {
		if ep.ID == id {
			return ep, nil
		}
	}

	return Episode{}, NotFoundError{ID: id}
}

// Count returns the number of recorded episodes.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.episodes)
}
