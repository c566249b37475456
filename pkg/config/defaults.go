package config

const (
	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768

	defaultVectorProvider = "sqlitevec"

	defaultSummarizerProvider = "heuristic"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "simulacrum.memory"

	defaultMicroChunkSize    = 10
	defaultHotChunks         = 2
	defaultWarmRetentionDays = 14
	defaultMaxWarmChunks     = 50

	defaultBudgetTotalTokens = 32000
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Chunks: ChunksConfig{
			MicroChunkSize:    defaultMicroChunkSize,
			HotChunks:         defaultHotChunks,
			WarmRetentionDays: defaultWarmRetentionDays,
			MaxWarmChunks:     defaultMaxWarmChunks,
		},
		Budget: BudgetConfig{
			TotalTokens: defaultBudgetTotalTokens,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Summarizer: SummarizerConfig{
			Provider: defaultSummarizerProvider,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
