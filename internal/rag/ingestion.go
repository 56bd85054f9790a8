package rag

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doganyilmaz/profile-assistant/internal/telemetry"
	"github.com/doganyilmaz/profile-assistant/models"
)

const (
	// DefaultEmbedRetries is how many times a failed embedding call is retried.
	DefaultEmbedRetries = 2
	// DefaultEmbedBackoff is the base delay between embedding retries.
	DefaultEmbedBackoff = 300 * time.Millisecond
)

// IngestionPipeline converts profile data into embedded chunks in the vector
// store. Re-ingestion for a given profile is serialized against itself via a
// per-profile lock, so concurrent readers observe either the old complete set
// or the new complete set, never a mixture.
type IngestionPipeline struct {
	store    VectorStore
	embedder EmbeddingProvider
	chunking ChunkingConfig
	retries  int
	backoff  time.Duration
	logger   *log.Logger

	locks sync.Map // profile id -> *sync.Mutex
}

// NewIngestionPipeline builds an ingestion pipeline. The chunking config is
// validated up front so a misconfigured overlap fails at startup, not mid-ingest.
func NewIngestionPipeline(store VectorStore, embedder EmbeddingProvider, chunking ChunkingConfig, logger *log.Logger) (*IngestionPipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if err := chunking.Validate(); err != nil {
		return nil, fmt.Errorf("chunking config: %w", err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	}
	return &IngestionPipeline{
		store:    store,
		embedder: embedder,
		chunking: chunking,
		retries:  DefaultEmbedRetries,
		backoff:  DefaultEmbedBackoff,
		logger:   logger,
	}, nil
}

// SetRetryPolicy overrides the bounded retry applied to embedding calls.
func (p *IngestionPipeline) SetRetryPolicy(retries int, backoff time.Duration) {
	if retries >= 0 {
		p.retries = retries
	}
	if backoff > 0 {
		p.backoff = backoff
	}
}

// sourceDocument is one formatted text plus its provenance, ready for chunking.
type sourceDocument struct {
	text       string
	sourceType SourceType
	sourceID   int64
}

// Document is an unstructured text ingested alongside the structured
// profile records, e.g. a CV or a fetched GitHub repository description.
type Document struct {
	Text       string
	SourceType SourceType
	SourceID   int64
}

// IngestProfileData formats the structured profile records into text, chunks,
// embeds and upserts them. Returns the number of chunks created.
func (p *IngestionPipeline) IngestProfileData(ctx context.Context, profileID int64, summary string, experiences []models.Experience, projects []models.Project) (int, error) {
	if profileID <= 0 {
		return 0, &ValidationError{Msg: fmt.Sprintf("invalid profile id %d", profileID)}
	}
	chunks, err := p.buildChunks(ctx, profileID, profileDocuments(summary, experiences, projects))
	if err != nil {
		return 0, err
	}
	return p.store.UpsertChunks(ctx, chunks)
}

// IngestDocument runs the same pipeline for a single unstructured text.
func (p *IngestionPipeline) IngestDocument(ctx context.Context, profileID int64, text string, sourceType SourceType) (int, error) {
	if profileID <= 0 {
		return 0, &ValidationError{Msg: fmt.Sprintf("invalid profile id %d", profileID)}
	}
	if strings.TrimSpace(text) == "" {
		return 0, &ValidationError{Msg: "document text must not be empty"}
	}
	chunks, err := p.buildChunks(ctx, profileID, []sourceDocument{{text: text, sourceType: sourceType}})
	if err != nil {
		return 0, err
	}
	return p.store.UpsertChunks(ctx, chunks)
}

// ReingestProfile replaces all chunks for a profile: delete, then full rebuild.
// If the insert phase fails after the delete succeeded, a ConsistencyError is
// returned naming the profile as left with zero chunks; retrying the same call
// is the recovery path (delete is idempotent and insert is a fresh rebuild).
func (p *IngestionPipeline) ReingestProfile(ctx context.Context, profileID int64, summary string, experiences []models.Experience, projects []models.Project, extras ...Document) (int, error) {
	if profileID <= 0 {
		return 0, &ValidationError{Msg: fmt.Sprintf("invalid profile id %d", profileID)}
	}

	mu := p.lockFor(profileID)
	mu.Lock()
	defer mu.Unlock()

	deleted, err := p.store.DeleteProfileChunks(ctx, profileID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for profile %d: %w", profileID, err)
	}

	docs := profileDocuments(summary, experiences, projects)
	for _, extra := range extras {
		if strings.TrimSpace(extra.Text) == "" {
			continue
		}
		docs = append(docs, sourceDocument{text: extra.Text, sourceType: extra.SourceType, sourceID: extra.SourceID})
	}

	chunks, err := p.buildChunks(ctx, profileID, docs)
	if err != nil {
		return 0, &ConsistencyError{ProfileID: profileID, Err: err}
	}
	inserted, err := p.store.UpsertChunks(ctx, chunks)
	if err != nil {
		return 0, &ConsistencyError{ProfileID: profileID, Err: err}
	}

	p.logger.Printf("reingested profile %d: %d chunks deleted, %d created", profileID, deleted, inserted)
	return inserted, nil
}

func (p *IngestionPipeline) lockFor(profileID int64) *sync.Mutex {
	v, _ := p.locks.LoadOrStore(profileID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// buildChunks chunks and embeds every source document. Nothing is written
// until all embeddings succeed, so a provider failure leaves the store untouched.
func (p *IngestionPipeline) buildChunks(ctx context.Context, profileID int64, docs []sourceDocument) ([]VectorChunk, error) {
	var out []VectorChunk
	for _, doc := range docs {
		texts, err := ChunkText(doc.text, p.chunking)
		if err != nil {
			return nil, err
		}
		if len(texts) == 0 {
			continue
		}
		vectors, err := p.embedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vectors), len(texts))
		}
		telemetry.CountChunks(string(doc.sourceType), len(texts))
		for i, text := range texts {
			out = append(out, VectorChunk{
				ID:        uuid.NewString(),
				Text:      text,
				Embedding: vectors[i],
				Metadata: ChunkMetadata{
					ProfileID:  profileID,
					SourceType: doc.sourceType,
					SourceID:   doc.sourceID,
					ChunkIndex: i,
				},
			})
		}
	}
	return out, nil
}

// embedBatch applies the bounded retry-with-backoff policy to transient
// provider failures. Validation failures are never retried.
func (p *IngestionPipeline) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.backoff * time.Duration(attempt)):
			}
			telemetry.CountEmbeddingRetry()
			p.logger.Printf("retrying embedding batch (attempt %d/%d) after: %v", attempt, p.retries, lastErr)
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// profileDocuments formats structured records into ingestable texts, tagged
// with the matching source type.
func profileDocuments(summary string, experiences []models.Experience, projects []models.Project) []sourceDocument {
	var docs []sourceDocument
	if strings.TrimSpace(summary) != "" {
		docs = append(docs, sourceDocument{text: summary, sourceType: SourceProfileSummary})
	}
	for _, exp := range experiences {
		text := fmt.Sprintf("%s at %s.", exp.Role, exp.Company)
		if exp.Description != "" {
			text += " " + exp.Description
		}
		docs = append(docs, sourceDocument{text: text, sourceType: SourceExperience, sourceID: exp.ID})
	}
	for _, proj := range projects {
		text := proj.Title + "."
		if proj.Description != "" {
			text += " " + proj.Description
		}
		if len(proj.TechStack) > 0 {
			text += " Technologies: " + strings.Join(proj.TechStack, ", ")
		}
		docs = append(docs, sourceDocument{text: text, sourceType: SourceProject, sourceID: proj.ID})
	}
	return docs
}
