package retrieval

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/turn"
)

// Item is one candidate line for the assembled context.
type Item struct {
	Text string

	// Relevance orders candidates within a section; higher goes first.
	Relevance float64
}

// Sections carries the candidates for each budget reservation.
type Sections struct {
	// System is included verbatim, truncated only if it alone exceeds
	// its reservation.
	System string

	Recent    []Item
	Retrieved []Item
	Learnings []Item
}

// Assembler builds the final context string under a Budget. Each section
// spends only its own reservation; once a reservation runs out, the rest
// of that section's candidates are dropped.
type Assembler struct {
	budget Budget
	logger *zap.Logger
}

// NewAssembler creates an Assembler for the given budget.
func NewAssembler(budget Budget, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assembler{budget: budget, logger: logger}
}

// Budget returns the assembler's budget.
func (a *Assembler) Budget() Budget {
	return a.budget
}

// Assemble composes the sections into one context string. The result
// never exceeds Budget.Available() tokens.
func (a *Assembler) Assemble(sections Sections) string {
	remaining := a.budget.Available()
	var parts []string

	take := func(text string, allowance int) (string, int) {
		if allowance > remaining {
			allowance = remaining
		}
		out, used := truncateToTokens(text, allowance)
		remaining -= used
		return out, used
	}

	if sections.System != "" {
		out, _ := take(sections.System, a.budget.System)
		if out != "" {
			parts = append(parts, out)
		}
	}

	for _, sec := range []struct {
		items     []Item
		allowance int
	}{
		{sections.Recent, a.budget.Recent},
		{sections.Retrieved, a.budget.Retrieved},
		{sections.Learnings, a.budget.Learnings},
	} {
		if len(sec.items) == 0 {
			continue
		}

		text := a.renderSection(sec.items, min(sec.allowance, remaining))
		if text == "" {
			continue
		}

		remaining -= turn.EstimateTokens(text)
		parts = append(parts, text)
	}

	return strings.Join(parts, "\n\n")
}

// renderSection takes items highest-relevance first until the allowance
// is exhausted, then drops the remainder.
func (a *Assembler) renderSection(items []Item, allowance int) string {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Relevance > sorted[j].Relevance
	})

	// Track the running word count rather than summing per-item token
	// estimates: rounding each item separately can under-count the
	// estimate of the joined text and leak past the allowance.
	var b strings.Builder
	words := 0
	dropped := 0

	for _, item := range sorted {
		itemWords := len(strings.Fields(item.Text))
		if tokensForWords(words+itemWords) > allowance {
			dropped++
			continue
		}

		words += itemWords
		b.WriteString(item.Text)
		b.WriteString("\n")
	}

	if dropped > 0 {
		a.logger.Debug("dropped context candidates over section budget",
			zap.Int("dropped", dropped),
			zap.Int("allowance", allowance),
		)
	}

	return strings.TrimRight(b.String(), "\n")
}

// tokensForWords is the token estimate for a text of n words, matching
// turn.EstimateTokens.
func tokensForWords(n int) int {
	return int(math.Round(float64(n) * 1.3))
}

// truncateToTokens cuts text word by word to fit the allowance. Returns
// the kept text and its token estimate.
func truncateToTokens(text string, allowance int) (string, int) {
	if allowance <= 0 {
		return "", 0
	}

	if cost := turn.EstimateTokens(text); cost <= allowance {
		return text, cost
	}

	words := strings.Fields(text)
	// words * 1.3 <= allowance
	keep := allowance * 10 / 13
	if keep <= 0 {
		return "", 0
	}
	if keep > len(words) {
		keep = len(words)
	}

	out := strings.Join(words[:keep], " ")
	return out, turn.EstimateTokens(out)
}
