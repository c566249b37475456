// Package simulacrumutils is the memory store utility package. It builds a
// fully wired store from flat provider options so callers do not import
// every backend package themselves.
package simulacrumutils

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/config"
	embeddingutils "github.com/papercomputeco/simulacrum/pkg/embeddings/utils"
	"github.com/papercomputeco/simulacrum/pkg/eventstream"
	"github.com/papercomputeco/simulacrum/pkg/eventstream/kafka"
	"github.com/papercomputeco/simulacrum/pkg/eventstream/nop"
	"github.com/papercomputeco/simulacrum/pkg/retrieval"
	"github.com/papercomputeco/simulacrum/pkg/simulacrum"
	"github.com/papercomputeco/simulacrum/pkg/summarize"
	summarizerollama "github.com/papercomputeco/simulacrum/pkg/summarize/ollama"
	vectorutils "github.com/papercomputeco/simulacrum/pkg/vector/utils"
)

// DefaultCollection is the vector collection name used for remote stores.
const DefaultCollection = "simulacrum"

type NewStoreOpts struct {
	// Dir is the store root directory.
	Dir string

	// SessionID identifies the owning session in emitted events.
	SessionID string

	MicroChunkSize    uint
	HotChunks         uint
	WarmRetentionDays uint
	MaxWarmChunks     uint
	BudgetTokens      uint

	VectorProvider     string
	VectorTarget       string
	EmbeddingProvider  string
	EmbeddingTarget    string
	EmbeddingModel     string
	EmbeddingDims      uint
	SummarizerProvider string
	SummarizerTarget   string
	SummarizerModel    string
	EventProvider      string
	EventBrokers       []string
	EventTopic         string

	Logger *zap.Logger
}

// OptsFromConfig flattens a persistent config into store options.
func OptsFromConfig(cfg *config.Config, sessionID string, logger *zap.Logger) *NewStoreOpts {
	return &NewStoreOpts{
		Dir:                cfg.Storage.Dir,
		SessionID:          sessionID,
		MicroChunkSize:     cfg.Chunks.MicroChunkSize,
		HotChunks:          cfg.Chunks.HotChunks,
		WarmRetentionDays:  cfg.Chunks.WarmRetentionDays,
		MaxWarmChunks:      cfg.Chunks.MaxWarmChunks,
		BudgetTokens:       cfg.Budget.TotalTokens,
		VectorProvider:     cfg.VectorStore.Provider,
		VectorTarget:       cfg.VectorStore.Target,
		EmbeddingProvider:  cfg.Embedding.Provider,
		EmbeddingTarget:    cfg.Embedding.Target,
		EmbeddingModel:     cfg.Embedding.Model,
		EmbeddingDims:      cfg.Embedding.Dimensions,
		SummarizerProvider: cfg.Summarizer.Provider,
		SummarizerTarget:   cfg.Summarizer.Target,
		SummarizerModel:    cfg.Summarizer.Model,
		EventProvider:      cfg.EventStream.Provider,
		EventBrokers:       cfg.EventStream.Brokers,
		EventTopic:         cfg.EventStream.Topic,
		Logger:             logger,
	}
}

// NewStore opens a memory store with collaborators built from the
// configured providers. Provider "none" disables the corresponding
// collaborator; retrieval then degrades to the hot tier and topology.
func NewStore(ctx context.Context, o *NewStoreOpts) (*simulacrum.Store, error) {
	if o.Dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}

	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []simulacrum.Option{simulacrum.WithLogger(logger)}

	if o.EmbeddingProvider != "" && o.EmbeddingProvider != "none" {
		embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: o.EmbeddingProvider,
			TargetURL:    o.EmbeddingTarget,
			Model:        o.EmbeddingModel,
			Dims:         int(o.EmbeddingDims),
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
		opts = append(opts, simulacrum.WithEmbedder(embedder))
	}

	if o.VectorProvider != "" && o.VectorProvider != "none" {
		driverOpts, err := vectorDriverOpts(o, logger)
		if err != nil {
			return nil, err
		}

		driver, err := vectorutils.NewVectorDriver(ctx, driverOpts)
		if err != nil {
			return nil, fmt.Errorf("creating vector driver: %w", err)
		}
		opts = append(opts, simulacrum.WithVectorDriver(driver))
	}

	summarizer, err := newSummarizer(o, logger)
	if err != nil {
		return nil, err
	}
	if summarizer != nil {
		opts = append(opts, simulacrum.WithSummarizer(summarizer))
	}

	publisher, err := newPublisher(o, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, simulacrum.WithPublisher(publisher))

	cfg := simulacrum.Config{
		SessionID:         o.SessionID,
		MicroChunkSize:    int(o.MicroChunkSize),
		HotChunks:         int(o.HotChunks),
		WarmRetentionDays: int(o.WarmRetentionDays),
		MaxWarmChunks:     int(o.MaxWarmChunks),
	}
	if o.BudgetTokens > 0 {
		cfg.Budget = retrieval.DefaultBudget(int(o.BudgetTokens))
	}

	return simulacrum.Open(o.Dir, cfg, opts...)
}

// vectorDriverOpts translates the flat target string into per-provider
// driver options. For sqlitevec the target is a database path, defaulting
// to vectors.db inside the store directory. For qdrant it is host:port.
func vectorDriverOpts(o *NewStoreOpts, logger *zap.Logger) (*vectorutils.NewVectorDriverOpts, error) {
	driverOpts := &vectorutils.NewVectorDriverOpts{
		ProviderType: o.VectorProvider,
		Collection:   DefaultCollection,
		Dimensions:   o.EmbeddingDims,
		Logger:       logger,
	}

	switch o.VectorProvider {
	case "sqlitevec":
		driverOpts.DBPath = o.VectorTarget
		if driverOpts.DBPath == "" {
			driverOpts.DBPath = filepath.Join(o.Dir, "vectors.db")
		}

	case "qdrant":
		host, portStr, err := net.SplitHostPort(o.VectorTarget)
		if err != nil {
			return nil, fmt.Errorf("qdrant target must be host:port, got %q: %w", o.VectorTarget, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("qdrant target port: %w", err)
		}
		driverOpts.Host = host
		driverOpts.Port = port
	}

	return driverOpts, nil
}

// newSummarizer builds the configured summarizer. Returns nil for the
// heuristic default so the store falls back to its own.
func newSummarizer(o *NewStoreOpts, logger *zap.Logger) (summarize.Summarizer, error) {
	switch o.SummarizerProvider {
	case "", "heuristic":
		return nil, nil
	case "semantic":
		generator, err := summarizerollama.NewGenerator(summarizerollama.GeneratorConfig{
			BaseURL: o.SummarizerTarget,
			Model:   o.SummarizerModel,
		})
		if err != nil {
			return nil, fmt.Errorf("creating summarizer generator: %w", err)
		}
		return summarize.NewSemantic(generator, summarize.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unsupported summarizer provider: %s", o.SummarizerProvider)
	}
}

func newPublisher(o *NewStoreOpts, logger *zap.Logger) (eventstream.Publisher, error) {
	switch o.EventProvider {
	case "", "nop", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.EventBrokers,
			Topic:   o.EventTopic,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.EventProvider)
	}
}
