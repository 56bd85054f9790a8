package rag

import "context"

// SourceType tags the provenance of a stored chunk.
type SourceType string

const (
	SourceProfileSummary SourceType = "profile_summary"
	SourceExperience     SourceType = "experience"
	SourceProject        SourceType = "project"
	SourceCVDocument     SourceType = "cv_document"
	SourceGitHub         SourceType = "github"
)

// ChunkMetadata identifies where a chunk came from. The tuple
// (profile_id, source_type, source_id, chunk_index) is unique within the store.
type ChunkMetadata struct {
	ProfileID  int64      `json:"profile_id"`
	SourceType SourceType `json:"source_type"`
	SourceID   int64      `json:"source_id"`
	ChunkIndex int        `json:"chunk_index"`
}

// VectorChunk is a span of source text with its embedding, immutable once stored.
type VectorChunk struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Embedding []float32     `json:"embedding"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// RetrievedChunk is a search hit with its similarity score. Produced per query,
// never persisted.
type RetrievedChunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"`
}

// EmbeddingProvider turns text into fixed-dimension vectors. All vectors from
// one configured provider share the same dimensionality; mixing providers
// across ingestion and retrieval for the same store is a caller error.
type EmbeddingProvider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts; the result order
	// matches the input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists and queries chunks with profile-scoped metadata.
type VectorStore interface {
	// UpsertChunks durably writes chunks and returns the number inserted.
	// Calling with zero chunks is a no-op.
	UpsertChunks(ctx context.Context, chunks []VectorChunk) (int, error)

	// DeleteProfileChunks removes every chunk for a profile and returns the
	// number deleted. Deleting a profile with no chunks returns 0, not an error.
	DeleteProfileChunks(ctx context.Context, profileID int64) (int, error)

	// Search returns at most topK chunks for the profile, ordered by similarity
	// descending; ties broken by ascending chunk_index then ascending source_id.
	// Every result's metadata must carry the requested profile id.
	Search(ctx context.Context, queryEmbedding []float32, profileID int64, topK int) ([]RetrievedChunk, error)
}
