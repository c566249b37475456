// Package ctf implements the Compact Turn Format, a line-oriented lossless
// text encoding for a turn sequence. It is the storage form of the warm
// chunk tier.
//
// The format is versioned by a header line:
//
//	#CTF v1
//	user	what does the chunk manager do?
//	assistant	it groups turns into chunks␊and tracks their lifecycle	claude-3
//
// Each line after the header is role, content, and an optional model,
// separated by tabs. Literal newlines inside content are replaced with
// U+240A (␊) and tabs with U+2409 (␉) on encode; both are reversed on
// decode so arbitrary content round-trips exactly.
package ctf

import (
	"bufio"
	"strings"

	"github.com/papercomputeco/simulacrum/pkg/turn"
)

// Header is the CTF v1 header line.
const Header = "#CTF v1"

const (
	symbolNewline = "␊" // ␊ replaces \n in content
	symbolTab     = "␉" // ␉ replaces \t in content
)

var roles = map[string]turn.Type{
	string(turn.TypeUser):       turn.TypeUser,
	string(turn.TypeAssistant):  turn.TypeAssistant,
	string(turn.TypeSystem):     turn.TypeSystem,
	string(turn.TypeToolCall):   turn.TypeToolCall,
	string(turn.TypeToolResult): turn.TypeToolResult,
	string(turn.TypeSummary):    turn.TypeSummary,
	string(turn.TypeLearning):   turn.TypeLearning,
	string(turn.TypeCheckpoint): turn.TypeCheckpoint,
}

// Encode serializes turns to CTF text.
func Encode(turns []turn.Turn) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")

	for _, t := range turns {
		b.WriteString(string(t.Type))
		b.WriteString("\t")
		b.WriteString(escape(t.Content))
		if t.Model != "" {
			b.WriteString("\t")
			b.WriteString(t.Model)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Decode parses CTF text back into turns.
//
// Decoding is tolerant: header lines, blank lines, and lines that do not
// parse as a turn are skipped rather than failing the whole decode.
func Decode(content string) []turn.Turn {
	var turns []turn.Turn

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 2 {
			continue
		}

		turnType, ok := roles[parts[0]]
		if !ok {
			continue
		}

		var opts []turn.Option
		if len(parts) == 3 && parts[2] != "" {
			opts = append(opts, turn.WithModel(parts[2]))
		}

		turns = append(turns, turn.New(unescape(parts[1]), turnType, opts...))
	}

	return turns
}

func escape(content string) string {
	content = strings.ReplaceAll(content, "\t", symbolTab)
	return strings.ReplaceAll(content, "\n", symbolNewline)
}

func unescape(content string) string {
	content = strings.ReplaceAll(content, symbolNewline, "\n")
	return strings.ReplaceAll(content, symbolTab, "\t")
}
