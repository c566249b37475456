package retrieval

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/episode"
	"github.com/papercomputeco/simulacrum/pkg/turn"
)

// PlanningContext is the categorized knowledge bundle handed to the
// agent's planning phase. Unlike assembled prompt text, it stays
// structured so the planner can weigh categories differently.
type PlanningContext struct {
	Goal string `json:"goal"`

	Facts       []turn.Learning `json:"facts,omitempty"`
	Constraints []turn.Learning `json:"constraints,omitempty"`
	Templates   []turn.Learning `json:"templates,omitempty"`
	Heuristics  []turn.Learning `json:"heuristics,omitempty"`
	Patterns    []turn.Learning `json:"patterns,omitempty"`

	// DeadEnds combines dead-end learnings and failed episodes so the
	// planner can steer away from known failures.
	DeadEnds []turn.Learning   `json:"dead_ends,omitempty"`
	Episodes []episode.Episode `json:"episodes,omitempty"`
}

// maxPerCategory bounds how many learnings each category carries.
const maxPerCategory = 10

// PlanningRetriever categorizes stored learnings against a goal.
type PlanningRetriever struct {
	semantic *SemanticRetriever
	episodes *episode.Manager
	logger   *zap.Logger
}

// NewPlanningRetriever creates a PlanningRetriever. The semantic
// retriever and episode manager may each be nil; the corresponding
// signal is simply absent.
func NewPlanningRetriever(semantic *SemanticRetriever, episodes *episode.Manager, logger *zap.Logger) *PlanningRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PlanningRetriever{
		semantic: semantic,
		episodes: episodes,
		logger:   logger,
	}
}

// Retrieve scores learnings against the goal and buckets them by
// category. Scoring is hybrid: keyword overlap always contributes, and
// semantic similarity is blended in when a vector index is available.
func (r *PlanningRetriever) Retrieve(ctx context.Context, goal string, learnings []turn.Learning) PlanningContext {
	pc := PlanningContext{Goal: goal}

	semanticScores := r.semanticScores(ctx, goal)
	goalWords := wordSet(goal)

	type scored struct {
		learning turn.Learning
		score    float64
	}

	buckets := make(map[turn.Category][]scored)
	for _, l := range learnings {
		if l.SupersededBy != "" {
			continue
		}

		score := keywordOverlap(goalWords, l.Fact)
		if sem, ok := semanticScores[l.ID]; ok {
			score = 0.5*score + 0.5*sem
		}

		// Confidence breaks ties and suppresses shaky learnings.
		score *= l.Confidence

		buckets[l.Category] = append(buckets[l.Category], scored{learning: l, score: score})
	}

	top := func(cat turn.Category) []turn.Learning {
		items := buckets[cat]
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].score > items[j].score
		})

		var out []turn.Learning
		for _, s := range items {
			if len(out) >= maxPerCategory {
				break
			}
			if s.score <= 0 {
				continue
			}
			out = append(out, s.learning)
		}
		return out
	}

	pc.Facts = top(turn.CategoryFact)
	pc.Constraints = append(top(turn.CategoryConstraint), top(turn.CategoryPreference)...)
	pc.Templates = top(turn.CategoryTemplate)
	pc.Heuristics = top(turn.CategoryHeuristic)
	pc.Patterns = top(turn.CategoryPattern)
	pc.DeadEnds = top(turn.CategoryDeadEnd)

	if r.episodes != nil {
		pc.Episodes = r.episodes.DeadEnds()
	}

	return pc
}

// semanticScores maps learning IDs to similarity scores for the goal.
func (r *PlanningRetriever) semanticScores(ctx context.Context, goal string) map[string]float64 {
	if r.semantic == nil {
		return nil
	}

	scores := make(map[string]float64)
	for _, res := range r.semantic.Retrieve(ctx, goal, 50) {
		if res.Kind == "learning" {
			scores[res.ID] = float64(res.Score)
		}
	}

	return scores
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'`")
		if len(w) > 2 {
			set[w] = true
		}
	}
	return set
}

// keywordOverlap is the fraction of goal words appearing in fact.
func keywordOverlap(goalWords map[string]bool, fact string) float64 {
	if len(goalWords) == 0 {
		return 0
	}

	factWords := wordSet(fact)
	shared := 0
	for w := range goalWords {
		if factWords[w] {
			shared++
		}
	}

	return float64(shared) / float64(len(goalWords))
}
