package rag

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/doganyilmaz/profile-assistant/internal/telemetry"
)

// DefaultTopK is the number of chunks retrieved when the caller does not ask
// for a specific amount.
const DefaultTopK = 5

// RetrievalPipeline answers queries by embedding them and delegating to the
// vector store. It never invokes a generative model.
type RetrievalPipeline struct {
	store    VectorStore
	embedder EmbeddingProvider
	retries  int
	backoff  time.Duration
	minScore float64
	logger   *log.Logger
}

// NewRetrievalPipeline builds a retrieval pipeline.
func NewRetrievalPipeline(store VectorStore, embedder EmbeddingProvider, logger *log.Logger) (*RetrievalPipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	}
	return &RetrievalPipeline{
		store:    store,
		embedder: embedder,
		retries:  DefaultEmbedRetries,
		backoff:  DefaultEmbedBackoff,
		logger:   logger,
	}, nil
}

// SetMinScore discards retrieved chunks whose similarity falls below min.
// Zero keeps everything.
func (p *RetrievalPipeline) SetMinScore(min float64) {
	p.minScore = min
}

// Retrieve embeds the query and returns the topK most similar chunks for the
// profile, ordered by similarity descending.
func (p *RetrievalPipeline) Retrieve(ctx context.Context, query string, profileID int64, topK int) ([]RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Msg: "query must not be empty"}
	}
	if profileID <= 0 {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid profile id %d", profileID)}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	var (
		vector  []float32
		lastErr error
	)
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.backoff * time.Duration(attempt)):
			}
		}
		vector, lastErr = p.embedder.Embed(ctx, query)
		if lastErr == nil {
			break
		}
		if !IsRetryable(lastErr) {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	started := time.Now()
	chunks, err := p.store.Search(ctx, vector, profileID, topK)
	if err != nil {
		return nil, err
	}
	telemetry.ObserveRetrieval(time.Since(started))
	if p.minScore > 0 {
		kept := chunks[:0]
		for _, c := range chunks {
			if c.Score >= p.minScore {
				kept = append(kept, c)
			}
		}
		chunks = kept
	}
	return chunks, nil
}

// contextSeparator joins formatted chunks in the assembled context string.
const contextSeparator = "\n\n"

// FormatContext concatenates chunk texts in the given order, each prefixed
// with its source type. A chunk is appended only if the running length stays
// within maxLength; the first chunk that would overflow is dropped entirely
// (never truncated) and iteration stops there. The cut is positional, not a
// best-fit packing. A maxLength of zero or less fits nothing, so the result
// is empty. Empty input also yields an empty string.
func FormatContext(chunks []RetrievedChunk, maxLength int) string {
	var b strings.Builder
	for _, chunk := range chunks {
		part := fmt.Sprintf("[%s] %s", chunk.Metadata.SourceType, chunk.Text)
		need := len(part)
		if b.Len() > 0 {
			need += len(contextSeparator)
		}
		if b.Len()+need > maxLength {
			break
		}
		if b.Len() > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(part)
	}
	return b.String()
}
