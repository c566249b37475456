// Package summarize collapses a turn sequence into a short summary string.
//
// The heuristic summarizer is always available and makes no external
// calls. The semantic summarizer delegates to an injected text generator
// and falls back to the heuristic when the generator is absent, fails, or
// runs past its deadline, so summarization never hard-fails ingestion.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/turn"
)

// Summarizer produces a summary string for a turn sequence.
type Summarizer interface {
	Summarize(ctx context.Context, turns []turn.Turn) (string, error)
}

// Generator is the narrow LLM surface the semantic summarizer consumes.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// maxHeuristicLabel caps the length of the heuristic summary label.
const maxHeuristicLabel = 100

// Heuristic derives a label from the first substantive turn without any
// external calls.
type Heuristic struct{}

// NewHeuristic creates the default summarizer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Summarize returns "Discussion starting with: <first turn content>".
func (h *Heuristic) Summarize(_ context.Context, turns []turn.Turn) (string, error) {
	if len(turns) == 0 {
		return "Empty discussion", nil
	}

	first := strings.TrimSpace(turns[0].Content)
	first = strings.ReplaceAll(first, "\n", " ")
	if runes := []rune(first); len(runes) > maxHeuristicLabel {
		first = string(runes[:maxHeuristicLabel]) + "..."
	}

	return "Discussion starting with: " + first, nil
}

// DefaultTimeout bounds a semantic summarization call.
const DefaultTimeout = 15 * time.Second

// Semantic summarizes via an injected generator, degrading to the
// heuristic whenever the generator cannot answer in time.
type Semantic struct {
	generator Generator
	fallback  *Heuristic
	timeout   time.Duration
	logger    *zap.Logger
}

// SemanticOption configures a Semantic summarizer.
type SemanticOption func(*Semantic)

// WithTimeout overrides the per-call generation deadline.
func WithTimeout(d time.Duration) SemanticOption {
	return func(s *Semantic) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) SemanticOption {
	return func(s *Semantic) {
		s.logger = logger
	}
}

// NewSemantic creates a summarizer backed by generator. A nil generator is
// allowed and behaves as a pure heuristic summarizer.
func NewSemantic(generator Generator, opts ...SemanticOption) *Semantic {
	s := &Semantic{
		generator: generator,
		fallback:  NewHeuristic(),
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Summarize asks the generator for a summary, falling back to the
// heuristic on any failure.
func (s *Semantic) Summarize(ctx context.Context, turns []turn.Turn) (string, error) {
	if s.generator == nil || len(turns) == 0 {
		return s.fallback.Summarize(ctx, turns)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summary, err := s.generator.Generate(genCtx, buildPrompt(turns))
	if err != nil {
		s.logger.Warn("semantic summarization failed, using heuristic", zap.Error(err))
		return s.fallback.Summarize(ctx, turns)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return s.fallback.Summarize(ctx, turns)
	}

	return summary, nil
}

func buildPrompt(turns []turn.Turn) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation in one or two sentences. ")
	b.WriteString("Focus on decisions made and facts established.\n\n")

	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Type, t.Content)
	}

	return b.String()
}
