// Package hashed implements a deterministic, offline fallback Embedder.
//
// Each text becomes a unit-normalized bag-of-words vector: every word is
// hashed into one of Dims buckets and the bucket counts are normalized.
// The result carries enough lexical signal for coarse similarity ranking
// while requiring no model, network, or state.
package hashed

import (
	"context"
	"encoding/binary"
	"math"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/papercomputeco/simulacrum/pkg/embeddings"
)

// DefaultDims is the default embedding dimensionality.
const DefaultDims = 256

// Embedder produces deterministic hash-based embeddings.
type Embedder struct {
	dims int
}

// Config holds configuration for the hashed embedder.
type Config struct {
	// Dims is the vector dimensionality. Defaults to DefaultDims.
	Dims int
}

// NewEmbedder creates a deterministic hash-based embedder.
func NewEmbedder(cfg Config) *Embedder {
	dims := cfg.Dims
	if dims <= 0 {
		dims = DefaultDims
	}

	return &Embedder{dims: dims}
}

// Embed converts each text into a normalized bag-of-words hash vector.
func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embedOne(text)
	}

	return out, nil
}

func (e *Embedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dims)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'`")
		if word == "" {
			continue
		}

		sum := blake2b.Sum256([]byte(word))
		bucket := binary.BigEndian.Uint32(sum[:4]) % uint32(e.dims)
		vec[bucket]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm == 0 {
		return vec
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}

	return vec
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

// Ensure Embedder implements embeddings.Embedder
var _ embeddings.Embedder = (*Embedder)(nil)
