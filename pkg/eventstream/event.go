package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnPersisted is emitted after a conversation turn is persisted.
	EventTypeTurnPersisted = "simulacrum.turn.persisted"

	// EventTypeChunkDemoted is emitted after a chunk changes tier.
	EventTypeChunkDemoted = "simulacrum.chunk.demoted"

	// EventTypeEpisodeRecorded is emitted after an episode is written to the log.
	EventTypeEpisodeRecorded = "simulacrum.episode.recorded"
)

// MemoryEvent is a transport-neutral event payload for memory lifecycle
// changes.
type MemoryEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`

	Turn    *TurnMeta    `json:"turn,omitempty"`
	Chunk   *ChunkMeta   `json:"chunk,omitempty"`
	Episode *EpisodeMeta `json:"episode,omitempty"`
}

// EventSource identifies the session the event originated from.
type EventSource struct {
	SessionID string `json:"session_id,omitempty"`
	Persona   string `json:"persona,omitempty"`
}

// TurnMeta captures turn-specific metadata for the event.
type TurnMeta struct {
	TurnID     string   `json:"turn_id"`
	TurnType   string   `json:"turn_type"`
	ParentIDs  []string `json:"parent_ids,omitempty"`
	TokenCount int      `json:"token_count"`
	Model      string   `json:"model,omitempty"`
}

// ChunkMeta captures chunk lifecycle metadata for the event.
type ChunkMeta struct {
	ChunkID    string `json:"chunk_id"`
	ChunkType  string `json:"chunk_type"`
	FromTier   string `json:"from_tier"`
	ToTier     string `json:"to_tier"`
	TokenCount int    `json:"token_count"`
	ArchiveRef string `json:"archive_ref,omitempty"`
}

// EpisodeMeta captures episode metadata for the event.
type EpisodeMeta struct {
	EpisodeID string `json:"episode_id"`
	Outcome   string `json:"outcome"`
	TurnCount int    `json:"turn_count"`
}
