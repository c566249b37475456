package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --store
// on "simulacrum ingest" and "simulacrum query").
type Flag struct {
	// Name is the long flag name (e.g. "store").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "storage.dir").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagStoreDir        = "store"
	FlagMicroChunkSize  = "micro-chunk-size"
	FlagHotChunks       = "hot-chunks"
	FlagWarmDays        = "warm-retention-days"
	FlagMaxWarmChunks   = "max-warm-chunks"
	FlagBudgetTokens    = "budget-tokens"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagSummarizerProv  = "summarizer-provider"
	FlagEventProvider   = "eventstream-provider"
	FlagEventTopic      = "eventstream-topic"
)

// DefaultFlagSet returns the canonical flag definitions shared by CLI
// commands. Commands register only the subset they need.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagStoreDir: {
			Name: "store", Shorthand: "s", ViperKey: "storage.dir",
			Description: "Path to the memory store directory",
		},
		FlagMicroChunkSize: {
			Name: "micro-chunk-size", ViperKey: "chunks.micro_chunk_size",
			Description: "Turns per micro chunk before sealing",
		},
		FlagHotChunks: {
			Name: "hot-chunks", ViperKey: "chunks.hot_chunks",
			Description: "Sealed chunks kept uncompressed in the hot tier",
		},
		FlagWarmDays: {
			Name: "warm-retention-days", ViperKey: "chunks.warm_retention_days",
			Description: "Days a warm chunk survives before cold demotion",
		},
		FlagMaxWarmChunks: {
			Name: "max-warm-chunks", ViperKey: "chunks.max_warm_chunks",
			Description: "Warm chunk count cap before oldest demote",
		},
		FlagBudgetTokens: {
			Name: "budget-tokens", ViperKey: "budget.total_tokens",
			Description: "Total token budget for assembled context",
		},
		FlagVectorStoreProv: {
			Name: "vector-store-provider", ViperKey: "vector_store.provider",
			Description: "Vector store provider (sqlitevec, qdrant, inmemory, none)",
		},
		FlagVectorStoreTgt: {
			Name: "vector-store-target", ViperKey: "vector_store.target",
			Description: "Vector store target (db path for sqlitevec, host:port for qdrant)",
		},
		FlagEmbeddingProv: {
			Name: "embedding-provider", ViperKey: "embedding.provider",
			Description: "Embedding provider (ollama, hashed, none)",
		},
		FlagEmbeddingTgt: {
			Name: "embedding-target", ViperKey: "embedding.target",
			Description: "Embedding provider URL",
		},
		FlagEmbeddingModel: {
			Name: "embedding-model", ViperKey: "embedding.model",
			Description: "Embedding model name",
		},
		FlagEmbeddingDims: {
			Name: "embedding-dimensions", ViperKey: "embedding.dimensions",
			Description: "Embedding vector dimensions",
		},
		FlagSummarizerProv: {
			Name: "summarizer-provider", ViperKey: "summarizer.provider",
			Description: "Chunk summarizer provider (heuristic, semantic)",
		},
		FlagEventProvider: {
			Name: "eventstream-provider", ViperKey: "eventstream.provider",
			Description: "Memory event publisher (nop, kafka)",
		},
		FlagEventTopic: {
			Name: "eventstream-topic", ViperKey: "eventstream.topic",
			Description: "Topic memory events publish to",
		},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
