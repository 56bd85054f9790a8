package embedding

import (
	"context"
	"fmt"

	"github.com/doganyilmaz/profile-assistant/internal/rag"
	"github.com/doganyilmaz/profile-assistant/provider"
)

// Embedding adapts an LLM provider to the retrieval pipeline's
// embedding interface. Backend failures are reported as provider
// errors so callers can decide whether to retry.
type Embedding struct {
	provider provider.Provider
}

func NewEmbedding(provider provider.Provider) *Embedding {
	return &Embedding{
		provider: provider,
	}
}

// Embed generates an embedding for a single text.
func (e *Embedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, &rag.ValidationError{Msg: "embed: text is empty"}
	}

	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for texts, preserving input order.
func (e *Embedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &rag.ValidationError{Msg: "embed: no texts given"}
	}
	for i, t := range texts {
		if t == "" {
			return nil, &rag.ValidationError{Msg: fmt.Sprintf("embed: text %d is empty", i)}
		}
	}

	vecs, err := e.provider.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, &rag.ProviderError{Op: "create_embedding", Err: err}
	}
	if len(vecs) != len(texts) {
		return nil, &rag.ProviderError{Op: "create_embedding", Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs))}
	}

	return vecs, nil
}
