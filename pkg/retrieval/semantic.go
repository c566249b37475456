package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/embeddings"
	"github.com/papercomputeco/simulacrum/pkg/vector"
)

// SemanticRetriever ranks stored documents by embedding similarity to a
// query. It is deliberately forgiving: a missing or failing embedder, a
// zero query vector, or a driver error all produce empty results rather
// than surfacing an error, since retrieval must never break the caller.
type SemanticRetriever struct {
	embedder embeddings.Embedder
	driver   vector.VectorDriver
	logger   *zap.Logger
}

// NewSemanticRetriever creates a retriever over the given embedder and
// driver. Either may be nil, in which case retrieval returns nothing.
func NewSemanticRetriever(embedder embeddings.Embedder, driver vector.VectorDriver, logger *zap.Logger) *SemanticRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SemanticRetriever{
		embedder: embedder,
		driver:   driver,
		logger:   logger,
	}
}

// Retrieve returns the topK most similar documents to query, or nothing
// when semantic search is unavailable.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query string, topK int) []vector.QueryResult {
	if r.embedder == nil || r.driver == nil || query == "" {
		return nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		r.logger.Warn("query embedding failed, skipping semantic retrieval", zap.Error(err))
		return nil
	}

	if len(vecs) == 0 || isZeroVector(vecs[0]) {
		return nil
	}

	results, err := r.driver.Query(ctx, vecs[0], topK)
	if err != nil {
		r.logger.Warn("vector query failed, skipping semantic retrieval", zap.Error(err))
		return nil
	}

	return results
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
