package retrieval

import (
	"fmt"
	"math"
	"strings"

	"github.com/papercomputeco/simulacrum/pkg/episode"
	"github.com/papercomputeco/simulacrum/pkg/topology"
	"github.com/papercomputeco/simulacrum/pkg/turn"
)

// MemoryContext is the structured bundle a retrieval pass hands to the
// agent layer. Empty fields are normal; retrieval never fails just
// because nothing matched.
type MemoryContext struct {
	Learnings   []turn.Learning   `json:"learnings,omitempty"`
	Episodes    []episode.Episode `json:"episodes,omitempty"`
	Turns       []turn.Turn       `json:"turns,omitempty"`
	CodeChunks  []topology.Node   `json:"code_chunks,omitempty"`
	Heuristics  []turn.Learning   `json:"heuristics,omitempty"`
	FocusTopics []string          `json:"focus_topics,omitempty"`
}

// IsEmpty reports whether the bundle carries anything at all.
func (mc MemoryContext) IsEmpty() bool {
	return len(mc.Learnings) == 0 &&
		len(mc.Episodes) == 0 &&
		len(mc.Turns) == 0 &&
		len(mc.CodeChunks) == 0 &&
		len(mc.Heuristics) == 0
}

// ToContext renders the bundle as prompt text, truncating section by
// section once maxTokens is reached. Sections render in fixed order so
// the most durable knowledge survives truncation first.
func (mc MemoryContext) ToContext(maxTokens int) string {
	// Word-count accounting mirrors turn.EstimateTokens over the whole
	// output, so the final estimate cannot round past maxTokens.
	var b strings.Builder
	words := 0

	write := func(line string) bool {
		lineWords := len(strings.Fields(line))
		if int(math.Round(float64(words+lineWords)*1.3)) > maxTokens {
			return false
		}
		words += lineWords
		b.WriteString(line)
		b.WriteString("\n")
		return true
	}

	if len(mc.Learnings) > 0 {
		write("## What I know")
		for _, l := range mc.Learnings {
			if !write(fmt.Sprintf("- %s (confidence %.2f)", l.Fact, l.Confidence)) {
				break
			}
		}
	}

	if len(mc.Heuristics) > 0 {
		write("## Heuristics")
		for _, h := range mc.Heuristics {
			if !write("- " + h.Fact) {
				break
			}
		}
	}

	if len(mc.Episodes) > 0 {
		write("## Past attempts")
		for _, ep := range mc.Episodes {
			if !write(fmt.Sprintf("- [%s] %s", ep.Outcome, ep.Summary)) {
				break
			}
		}
	}

	if len(mc.CodeChunks) > 0 {
		write("## Related code")
		for _, n := range mc.CodeChunks {
			label := n.Content
			if n.Spatial.File != "" {
				label = n.Spatial.File + ": " + label
			}
			if !write("- " + label) {
				break
			}
		}
	}

	if len(mc.Turns) > 0 {
		write("## Relevant history")
		for _, t := range mc.Turns {
			if !write(fmt.Sprintf("%s: %s", t.Type, t.Content)) {
				break
			}
		}
	}

	if len(mc.FocusTopics) > 0 {
		write("Focus: " + strings.Join(mc.FocusTopics, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}
