// Package simulacrum composes the memory engine: chunk lifecycle,
// topology graph, episode log, learnings, and retrieval behind one
// session-scoped store.
package simulacrum

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/chunk"
	"github.com/papercomputeco/simulacrum/pkg/embeddings"
	"github.com/papercomputeco/simulacrum/pkg/eventstream"
	"github.com/papercomputeco/simulacrum/pkg/summarize"
	"github.com/papercomputeco/simulacrum/pkg/topology"
	"github.com/papercomputeco/simulacrum/pkg/turn"
	"github.com/papercomputeco/simulacrum/pkg/vector"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
)

// jobKind selects what a maintenance job does.
type jobKind int

const (
	jobChunkSealed jobKind = iota
	jobTurnPersisted
	jobAutoWire
)

// job is a unit of background maintenance work. Ingestion enqueues jobs
// and never waits on them.
type job struct {
	kind       jobKind
	chunk      chunk.Chunk
	turn       turn.Turn
	candidates []topology.Candidate
}

// poolConfig is the worker pool wiring.
type poolConfig struct {
	chunks     *chunk.Manager
	extractor  *topology.Extractor
	summarizer summarize.Summarizer
	embedder   embeddings.Embedder
	vectors    vector.VectorDriver
	publisher  eventstream.Publisher
	sessionID  string

	numWorkers uint
	queueSize  uint
	logger     *zap.Logger
}

// pool processes maintenance jobs asynchronously so compression,
// embedding, and publishing stay off the turn ingestion path.
type pool struct {
	config *poolConfig
	queue  chan job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// newPool creates the pool and starts its worker goroutines.
func newPool(c *poolConfig) (*pool, error) {
	if c.numWorkers == 0 {
		c.numWorkers = defaultNumWorkers
	}

	if c.queueSize == 0 {
		c.queueSize = defaultJobQueueSize
	}

	if c.numWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("numWorkers %d exceeds max int", c.numWorkers)
	}

	p := &pool{
		config: c,
		queue:  make(chan job, c.queueSize),
		logger: c.logger,
	}

	p.wg.Add(int(c.numWorkers))
	for i := range c.numWorkers {
		go p.worker(i)
	}

	return p, nil
}

// enqueue submits a job for processing.
// Returns true if enqueued, false if the queue is full and the job was dropped.
func (p *pool) enqueue(j job) bool {
	select {
	case p.queue <- j:
		return true
	default:
		p.logger.Error("maintenance job dropped, queue full",
			zap.Int("kind", int(j.kind)),
		)
		return false
	}
}

// close signals workers to stop and waits for in-flight jobs to drain.
func (p *pool) close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("maintenance worker started", zap.Uint("worker_id", id))

	for j := range p.queue {
		p.processJob(j)
	}

	p.logger.Debug("maintenance worker stopped", zap.Uint("worker_id", id))
}

func (p *pool) processJob(j job) {
	ctx := context.Background()

	switch j.kind {
	case jobChunkSealed:
		p.processSealedChunk(ctx, j.chunk)
	case jobTurnPersisted:
		p.publishTurn(ctx, j.turn)
	case jobAutoWire:
		p.config.extractor.AutoWire(j.candidates, len(j.candidates))
	}
}

// processSealedChunk summarizes, embeds, indexes, and wires a freshly
// sealed chunk. Every step is best-effort; a failure is logged and the
// remaining steps still run where they can.
func (p *pool) processSealedChunk(ctx context.Context, c chunk.Chunk) {
	summary := c.Summary

	if summary == "" && p.config.summarizer != nil {
		s, err := p.config.summarizer.Summarize(ctx, c.Turns)
		if err != nil {
			p.logger.Warn("chunk summarization failed", zap.String("chunk_id", c.ID), zap.Error(err))
		} else {
			summary = s
			if err := p.config.chunks.SetSummary(c.ID, summary); err != nil && !chunk.IsNotFound(err) {
				p.logger.Warn("storing chunk summary failed", zap.String("chunk_id", c.ID), zap.Error(err))
			}
		}
	}

	if summary != "" {
		p.config.extractor.Extract(topology.Candidate{ID: c.ID, Text: summary}, topology.Facets{})
	}

	if p.config.embedder != nil && summary != "" {
		vecs, err := p.config.embedder.Embed(ctx, []string{summary})
		if err != nil || len(vecs) == 0 {
			p.logger.Warn("chunk embedding failed", zap.String("chunk_id", c.ID), zap.Error(err))
			return
		}

		if err := p.config.chunks.SetEmbedding(c.ID, vecs[0]); err != nil && !chunk.IsNotFound(err) {
			p.logger.Warn("storing chunk embedding failed", zap.String("chunk_id", c.ID), zap.Error(err))
		}

		if p.config.vectors != nil {
			doc := vector.Document{
				ID:        c.ID,
				Kind:      "chunk",
				Text:      summary,
				Embedding: vecs[0],
			}
			if err := p.config.vectors.Add(ctx, []vector.Document{doc}); err != nil {
				p.logger.Warn("indexing chunk failed", zap.String("chunk_id", c.ID), zap.Error(err))
			}
		}
	}
}

func (p *pool) publishTurn(ctx context.Context, t turn.Turn) {
	if p.config.publisher == nil {
		return
	}

	event := &eventstream.MemoryEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTurnPersisted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        eventstream.EventSource{SessionID: p.config.sessionID},
		Turn: &eventstream.TurnMeta{
			TurnID:     t.ID,
			TurnType:   string(t.Type),
			ParentIDs:  t.ParentIDs,
			TokenCount: t.TokenCount,
			Model:      t.Model,
		},
	}

	if err := p.config.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("publishing turn event failed", zap.String("turn_id", t.ID), zap.Error(err))
	}
}
