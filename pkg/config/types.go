package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent simulacrum configuration stored as
// config.toml in the .simulacrum/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Chunks      ChunksConfig      `toml:"chunks"`
	Budget      BudgetConfig      `toml:"budget"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Summarizer  SummarizerConfig  `toml:"summarizer"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// StorageConfig holds where memory state lives on disk.
type StorageConfig struct {
	Dir string `toml:"dir,omitempty"`
}

// ChunksConfig holds chunk lifecycle settings.
type ChunksConfig struct {
	MicroChunkSize    uint `toml:"micro_chunk_size,omitempty"`
	HotChunks         uint `toml:"hot_chunks,omitempty"`
	WarmRetentionDays uint `toml:"warm_retention_days,omitempty"`
	MaxWarmChunks     uint `toml:"max_warm_chunks,omitempty"`
}

// BudgetConfig holds the retrieval token budget.
type BudgetConfig struct {
	TotalTokens uint `toml:"total_tokens,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// SummarizerConfig holds chunk summarizer settings.
type SummarizerConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// EventStreamConfig holds memory event publishing settings.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(get func(c *Config) *uint, name string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			v := *get(c)
			if v == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(v), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*get(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.dir": {
		get: func(c *Config) string { return c.Storage.Dir },
		set: func(c *Config, v string) error { c.Storage.Dir = v; return nil },
	},
	"chunks.micro_chunk_size":    uintKey(func(c *Config) *uint { return &c.Chunks.MicroChunkSize }, "chunks.micro_chunk_size"),
	"chunks.hot_chunks":          uintKey(func(c *Config) *uint { return &c.Chunks.HotChunks }, "chunks.hot_chunks"),
	"chunks.warm_retention_days": uintKey(func(c *Config) *uint { return &c.Chunks.WarmRetentionDays }, "chunks.warm_retention_days"),
	"chunks.max_warm_chunks":     uintKey(func(c *Config) *uint { return &c.Chunks.MaxWarmChunks }, "chunks.max_warm_chunks"),
	"budget.total_tokens":        uintKey(func(c *Config) *uint { return &c.Budget.TotalTokens }, "budget.total_tokens"),
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": uintKey(func(c *Config) *uint { return &c.Embedding.Dimensions }, "embedding.dimensions"),
	"summarizer.provider": {
		get: func(c *Config) string { return c.Summarizer.Provider },
		set: func(c *Config, v string) error { c.Summarizer.Provider = v; return nil },
	},
	"summarizer.target": {
		get: func(c *Config) string { return c.Summarizer.Target },
		set: func(c *Config, v string) error { c.Summarizer.Target = v; return nil },
	},
	"summarizer.model": {
		get: func(c *Config) string { return c.Summarizer.Model },
		set: func(c *Config, v string) error { c.Summarizer.Model = v; return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			var brokers []string
			for _, b := range strings.Split(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					brokers = append(brokers, b)
				}
			}
			c.EventStream.Brokers = brokers
			return nil
		},
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}
