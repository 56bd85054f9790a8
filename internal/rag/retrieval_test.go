package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"
)

// recordingStore captures the Search arguments.
type recordingStore struct {
	*fakeStore
	lastTopK    int
	lastProfile int64
}

func (s *recordingStore) Search(ctx context.Context, queryEmbedding []float32, profileID int64, topK int) ([]RetrievedChunk, error) {
	s.lastTopK = topK
	s.lastProfile = profileID
	return s.fakeStore.Search(ctx, queryEmbedding, profileID, topK)
}

func testRetrieval(t *testing.T, store VectorStore, embedder EmbeddingProvider) *RetrievalPipeline {
	t.Helper()
	p, err := NewRetrievalPipeline(store, embedder, log.New(log.Writer(), "", 0))
	if err != nil {
		t.Fatalf("NewRetrievalPipeline: %v", err)
	}
	p.retries = 2
	p.backoff = time.Millisecond
	return p
}

func TestRetrieveValidation(t *testing.T) {
	p := testRetrieval(t, newFakeStore(), &fakeEmbedder{})

	if _, err := p.Retrieve(context.Background(), "   ", 1, 5); err == nil {
		t.Fatal("expected error for blank query")
	}
	if _, err := p.Retrieve(context.Background(), "query", 0, 5); err == nil {
		t.Fatal("expected error for invalid profile id")
	}
}

func TestRetrieveDefaultsTopK(t *testing.T) {
	store := &recordingStore{fakeStore: newFakeStore()}
	p := testRetrieval(t, store, &fakeEmbedder{})

	if _, err := p.Retrieve(context.Background(), "experience with Go", 42, 0); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if store.lastTopK != DefaultTopK {
		t.Fatalf("topK = %d, want default %d", store.lastTopK, DefaultTopK)
	}
	if store.lastProfile != 42 {
		t.Fatalf("profile = %d, want 42", store.lastProfile)
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	p := testRetrieval(t, newFakeStore(), &fakeEmbedder{})

	chunks, err := p.Retrieve(context.Background(), "anything", 1, 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks from an empty store, got %d", len(chunks))
	}
}

// scoredStore returns a fixed result set regardless of the query.
type scoredStore struct {
	*fakeStore
	results []RetrievedChunk
}

func (s *scoredStore) Search(ctx context.Context, queryEmbedding []float32, profileID int64, topK int) ([]RetrievedChunk, error) {
	return s.results, nil
}

func TestRetrieveFiltersBelowMinScore(t *testing.T) {
	store := &scoredStore{fakeStore: newFakeStore(), results: []RetrievedChunk{
		{Text: "close", Score: 0.9},
		{Text: "boundary", Score: 0.5},
		{Text: "noise", Score: 0.2},
	}}
	p := testRetrieval(t, store, &fakeEmbedder{})
	p.SetMinScore(0.5)

	chunks, err := p.Retrieve(context.Background(), "query", 1, 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks at or above the threshold, got %d", len(chunks))
	}
	if chunks[0].Text != "close" || chunks[1].Text != "boundary" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestRetrieveRetriesEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{failures: 2, err: &ProviderError{Op: "embed", Err: errors.New("rate limited")}}
	p := testRetrieval(t, newFakeStore(), embedder)

	if _, err := p.Retrieve(context.Background(), "query", 1, 5); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if embedder.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", embedder.calls)
	}
}

func TestRetrieveDoesNotRetryValidation(t *testing.T) {
	embedder := &fakeEmbedder{failures: 5, err: &ValidationError{Msg: "bad"}}
	p := testRetrieval(t, newFakeStore(), embedder)

	if _, err := p.Retrieve(context.Background(), "query", 1, 5); err == nil {
		t.Fatal("expected error")
	}
	if embedder.calls != 1 {
		t.Fatalf("validation errors must not be retried, got %d attempts", embedder.calls)
	}
}

func chunkWithText(text string, sourceType SourceType) RetrievedChunk {
	return RetrievedChunk{Text: text, Metadata: ChunkMetadata{SourceType: sourceType}}
}

func TestFormatContextEmpty(t *testing.T) {
	if got := FormatContext(nil, 2000); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestFormatContextPrefixAndOrder(t *testing.T) {
	chunks := []RetrievedChunk{
		chunkWithText("first", SourceExperience),
		chunkWithText("second", SourceProject),
	}
	got := FormatContext(chunks, 2000)
	want := "[experience] first\n\n[project] second"
	if got != want {
		t.Fatalf("FormatContext = %q, want %q", got, want)
	}
}

func TestFormatContextZeroLimit(t *testing.T) {
	chunks := []RetrievedChunk{chunkWithText(strings.Repeat("a", 30), SourceExperience)}
	if got := FormatContext(chunks, 0); got != "" {
		t.Fatalf("nothing fits in a zero limit, got %q", got)
	}
	if got := FormatContext(chunks, -1); got != "" {
		t.Fatalf("nothing fits in a negative limit, got %q", got)
	}
}

func TestFormatContextPositionalCut(t *testing.T) {
	chunks := []RetrievedChunk{
		chunkWithText(strings.Repeat("a", 50), SourceExperience),
		chunkWithText(strings.Repeat("b", 500), SourceExperience),
		chunkWithText("tiny", SourceExperience),
	}
	// the second chunk overflows; the third fits but must NOT be packed in
	got := FormatContext(chunks, 100)
	if !strings.Contains(got, "aaa") {
		t.Fatalf("first chunk missing: %q", got)
	}
	if strings.Contains(got, "bbb") || strings.Contains(got, "tiny") {
		t.Fatalf("cut must be positional, got %q", got)
	}
}

func TestFormatContextNeverTruncates(t *testing.T) {
	text := strings.Repeat("x", 80)
	chunks := []RetrievedChunk{chunkWithText(text, SourceProject)}
	got := FormatContext(chunks, 40)
	if got != "" {
		t.Fatalf("oversized first chunk must be dropped whole, got %q", got)
	}
}

func TestFormatContextBoundaryExact(t *testing.T) {
	part := fmt.Sprintf("[%s] %s", SourceProject, "abc")
	got := FormatContext([]RetrievedChunk{chunkWithText("abc", SourceProject)}, len(part))
	if got != part {
		t.Fatalf("chunk exactly at the limit must be kept, got %q", got)
	}
}
