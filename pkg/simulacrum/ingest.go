package simulacrum

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/papercomputeco/simulacrum/pkg/topology"
	"github.com/papercomputeco/simulacrum/pkg/vector"
)

const (
	// maxSectionRunes bounds how much of one document section a single
	// topology node holds.
	maxSectionRunes = 4000

	// maxIngestFileBytes skips files too large to be prose or source.
	maxIngestFileBytes = 1 << 20
)

// codeExtensions are the file suffixes IngestCodebase considers source.
var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".rs": true, ".java": true, ".rb": true, ".c": true, ".h": true,
	".cpp": true, ".md": true, ".sql": true, ".proto": true, ".sh": true,
}

// skipDirs are directory names never descended into during a codebase walk.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".idea": true,
	"dist": true, "build": true, "target": true,
}

// section is one structural slice of an ingested document.
type section struct {
	heading string
	body    string
	line    int
}

// IngestDocument splits a document into sections on headings and code
// fences, registers each as a memory node, and wires the batch into the
// topology graph. Returns the number of nodes created.
func (st *Store) IngestDocument(ctx context.Context, path, content string) (int, error) {
	if strings.TrimSpace(content) == "" {
		return 0, nil
	}

	docType := "note"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		docType = "markdown"
	default:
		if codeExtensions[strings.ToLower(filepath.Ext(path))] {
			docType = "code"
		}
	}

	sections := splitSections(content)
	candidates := make([]topology.Candidate, 0, len(sections))

	for i, sec := range sections {
		if err := ctx.Err(); err != nil {
			return len(candidates), err
		}

		id := fmt.Sprintf("%s#%d", docIDFor(path), i)
		candidates = append(candidates, topology.Candidate{ID: id, Text: sec.body})

		st.extractor.Extract(topology.Candidate{ID: id, Text: sec.body}, topology.Facets{
			DocumentType: docType,
			Verification: "unverified",
		})

		if err := st.topo.SetSpatial(topology.MemoryNodeID(id), topology.Spatial{
			File:    path,
			Line:    sec.line,
			Section: sec.heading,
		}); err != nil {
			st.logger.Warn("tagging section origin failed", zap.String("section_id", id), zap.Error(err))
		}

		st.indexSection(ctx, id, sec)
	}

	// One document's sections form a natural wiring window.
	if len(candidates) > 1 {
		st.extractor.AutoWire(candidates, len(candidates))
	}

	st.logger.Info("ingested document",
		zap.String("path", path),
		zap.String("document_type", docType),
		zap.Int("sections", len(candidates)),
	)

	return len(candidates), nil
}

// indexSection embeds and indexes a section when the collaborators exist.
func (st *Store) indexSection(ctx context.Context, id string, sec section) {
	if st.embedder == nil || st.vectors == nil {
		return
	}

	vecs, err := st.embedder.Embed(ctx, []string{sec.body})
	if err != nil || len(vecs) == 0 {
		st.logger.Warn("section embedding failed", zap.String("section_id", id), zap.Error(err))
		return
	}

	doc := vector.Document{
		ID:        topology.MemoryNodeID(id),
		Kind:      "node",
		Text:      sec.body,
		Embedding: vecs[0],
	}
	if err := st.vectors.Add(ctx, []vector.Document{doc}); err != nil {
		st.logger.Warn("indexing section failed", zap.String("section_id", id), zap.Error(err))
	}
}

// IngestCodebase walks root, ingesting every file whose relative path
// matches one of the glob patterns (or any recognized source file when no
// patterns are given). Returns the number of nodes created.
func (st *Store) IngestCodebase(ctx context.Context, root string, patterns ...string) (int, error) {
	total := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if !matchesPatterns(rel, patterns) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxIngestFileBytes {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			st.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}

		n, err := st.IngestDocument(ctx, rel, string(content))
		if err != nil {
			return err
		}
		total += n

		return nil
	})
	if err != nil {
		return total, fmt.Errorf("walking %s: %w", root, err)
	}

	st.logger.Info("ingested codebase", zap.String("root", root), zap.Int("nodes", total))
	return total, nil
}

// matchesPatterns reports whether rel matches any glob pattern, testing
// both the full relative path and the basename. With no patterns, any
// recognized source extension matches.
func matchesPatterns(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return codeExtensions[strings.ToLower(filepath.Ext(rel))]
	}

	for _, p := range patterns {
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(p, filepath.Base(rel)); ok {
			return true
		}
	}

	return false
}

// splitSections breaks content into sections at markdown headings,
// keeping code fences intact. Oversized sections split on length.
func splitSections(content string) []section {
	var (
		out     []section
		current strings.Builder
		heading string
		start   = 1
		inFence bool
	)

	flush := func(nextLine int) {
		body := strings.TrimSpace(current.String())
		current.Reset()
		if body == "" {
			return
		}

		for _, part := range splitOversized(body) {
			out = append(out, section{heading: heading, body: part, line: start})
		}
		start = nextLine
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}

		if !inFence && isHeading(trimmed) {
			flush(i + 1)
			heading = strings.TrimLeft(trimmed, "# ")
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")
	}
	flush(len(lines))

	if len(out) == 0 {
		body := strings.TrimSpace(content)
		if body != "" {
			for _, part := range splitOversized(body) {
				out = append(out, section{body: part, line: 1})
			}
		}
	}

	return out
}

func isHeading(line string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	rest := strings.TrimLeft(line, "#")
	return strings.HasPrefix(rest, " ") && strings.TrimSpace(rest) != ""
}

// splitOversized breaks a section body into rune-bounded parts at line
// boundaries.
func splitOversized(body string) []string {
	if len([]rune(body)) <= maxSectionRunes {
		return []string{body}
	}

	var (
		out     []string
		current strings.Builder
	)

	for _, line := range strings.Split(body, "\n") {
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(line)) > maxSectionRunes {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}

	return out
}

// docIDFor derives a stable document identity from its path.
func docIDFor(path string) string {
	sum := blake2b.Sum256([]byte(path))
	return "doc_" + hex.EncodeToString(sum[:8])
}
