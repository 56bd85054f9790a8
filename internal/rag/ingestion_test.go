package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/doganyilmaz/profile-assistant/models"
)

// fakeStore is an in-memory VectorStore that records operation order.
type fakeStore struct {
	mu        sync.Mutex
	chunks    map[string]VectorChunk
	ops       []string
	failUpser bool
	failDel   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{chunks: map[string]VectorChunk{}}
}

func (s *fakeStore) UpsertChunks(ctx context.Context, chunks []VectorChunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "upsert")
	if s.failUpser {
		return 0, errors.New("upsert failed")
	}
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return len(chunks), nil
}

func (s *fakeStore) DeleteProfileChunks(ctx context.Context, profileID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "delete")
	if s.failDel {
		return 0, errors.New("delete failed")
	}
	n := 0
	for id, c := range s.chunks {
		if c.Metadata.ProfileID == profileID {
			delete(s.chunks, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) Search(ctx context.Context, queryEmbedding []float32, profileID int64, topK int) ([]RetrievedChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RetrievedChunk
	for _, c := range s.chunks {
		if c.Metadata.ProfileID != profileID {
			continue
		}
		out = append(out, RetrievedChunk{Text: c.Text, Metadata: c.Metadata, Score: 1})
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// snapshot returns the profile's chunks as sorted text+metadata keys,
// ignoring the generated chunk ids.
func (s *fakeStore) snapshot(profileID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.chunks {
		if c.Metadata.ProfileID != profileID {
			continue
		}
		out = append(out, fmt.Sprintf("%s/%d/%d %s", c.Metadata.SourceType, c.Metadata.SourceID, c.Metadata.ChunkIndex, c.Text))
	}
	sort.Strings(out)
	return out
}

func (s *fakeStore) count(profileID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.chunks {
		if c.Metadata.ProfileID == profileID {
			n++
		}
	}
	return n
}

// fakeEmbedder returns fixed-size vectors, optionally failing the first
// failures calls with the given error.
type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failures > 0 {
		e.failures--
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 0, 1}
	}
	return out, nil
}

func testPipeline(t *testing.T, store VectorStore, embedder EmbeddingProvider) *IngestionPipeline {
	t.Helper()
	p, err := NewIngestionPipeline(store, embedder, ChunkingConfig{ChunkSize: 100, Overlap: 20}, log.New(log.Writer(), "", 0))
	if err != nil {
		t.Fatalf("NewIngestionPipeline: %v", err)
	}
	p.SetRetryPolicy(2, time.Millisecond)
	return p
}

func sampleProfile() (string, []models.Experience, []models.Project) {
	summary := "Backend engineer focused on Go services and data pipelines."
	experiences := []models.Experience{
		{ID: 10, ProfileID: 1, Role: "Senior Engineer", Company: "Acme", Description: "Built the payments platform."},
	}
	projects := []models.Project{
		{ID: 20, ProfileID: 1, Title: "Assistant", Description: "Q&A backend.", TechStack: []string{"Go", "PostgreSQL"}},
	}
	return summary, experiences, projects
}

func TestIngestProfileData(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, &fakeEmbedder{})

	summary, experiences, projects := sampleProfile()
	count, err := p.IngestProfileData(context.Background(), 1, summary, experiences, projects)
	if err != nil {
		t.Fatalf("IngestProfileData: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 chunks (summary, experience, project), got %d", count)
	}

	types := map[SourceType]int{}
	for _, c := range store.chunks {
		types[c.Metadata.SourceType]++
		if c.Metadata.ProfileID != 1 {
			t.Fatalf("chunk has wrong profile id: %+v", c.Metadata)
		}
	}
	if types[SourceProfileSummary] != 1 || types[SourceExperience] != 1 || types[SourceProject] != 1 {
		t.Fatalf("unexpected source type distribution: %v", types)
	}
}

func TestIngestProfileDataInvalidProfile(t *testing.T) {
	p := testPipeline(t, newFakeStore(), &fakeEmbedder{})
	_, err := p.IngestProfileData(context.Background(), 0, "summary", nil, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReingestReplacesChunks(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, &fakeEmbedder{})
	summary, experiences, projects := sampleProfile()

	if _, err := p.IngestProfileData(context.Background(), 1, summary, experiences, projects); err != nil {
		t.Fatalf("seed ingest: %v", err)
	}

	count, err := p.ReingestProfile(context.Background(), 1, "New summary only.", nil, nil)
	if err != nil {
		t.Fatalf("ReingestProfile: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 chunk after reingest, got %d", count)
	}
	if got := store.count(1); got != 1 {
		t.Fatalf("store holds %d chunks, want 1", got)
	}

	// delete must happen before the insert
	last2 := store.ops[len(store.ops)-2:]
	if last2[0] != "delete" || last2[1] != "upsert" {
		t.Fatalf("unexpected operation order: %v", store.ops)
	}
}

func TestReingestIdempotent(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, &fakeEmbedder{})
	summary, experiences, projects := sampleProfile()

	first, err := p.ReingestProfile(context.Background(), 1, summary, experiences, projects)
	if err != nil {
		t.Fatalf("ReingestProfile: %v", err)
	}
	before := store.snapshot(1)

	second, err := p.ReingestProfile(context.Background(), 1, summary, experiences, projects)
	if err != nil {
		t.Fatalf("ReingestProfile: %v", err)
	}
	if second != first {
		t.Fatalf("chunk count changed across identical reingests: %d then %d", first, second)
	}
	after := store.snapshot(1)
	if len(after) != len(before) {
		t.Fatalf("chunk set size changed: %d then %d", len(before), len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("chunk %d changed:\n%s\n%s", i, before[i], after[i])
		}
	}
}

func TestReingestIncludesExtraDocuments(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, &fakeEmbedder{})

	count, err := p.ReingestProfile(context.Background(), 1, "Summary.", nil, nil,
		Document{Text: "Repository: assistant. Q&A backend.", SourceType: SourceGitHub, SourceID: 99},
		Document{Text: "  ", SourceType: SourceGitHub, SourceID: 100},
	)
	if err != nil {
		t.Fatalf("ReingestProfile: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected summary plus one github chunk, got %d", count)
	}
	found := false
	for _, c := range store.chunks {
		if c.Metadata.SourceType == SourceGitHub && c.Metadata.SourceID == 99 {
			found = true
		}
	}
	if !found {
		t.Fatal("github document not ingested")
	}
}

func TestReingestConsistencyError(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, &fakeEmbedder{})
	summary, experiences, projects := sampleProfile()

	if _, err := p.IngestProfileData(context.Background(), 1, summary, experiences, projects); err != nil {
		t.Fatalf("seed ingest: %v", err)
	}

	store.failUpser = true
	_, err := p.ReingestProfile(context.Background(), 1, summary, experiences, projects)
	var ce *ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if ce.ProfileID != 1 {
		t.Fatalf("consistency error names profile %d, want 1", ce.ProfileID)
	}
	// old chunks are gone and nothing new was written
	if got := store.count(1); got != 0 {
		t.Fatalf("store holds %d chunks after failed reingest, want 0", got)
	}

	// retrying the same call recovers
	store.failUpser = false
	count, err := p.ReingestProfile(context.Background(), 1, summary, experiences, projects)
	if err != nil {
		t.Fatalf("retry reingest: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected full rebuild on retry, got %d chunks", count)
	}
}

func TestReingestDeleteFailureIsNotConsistencyError(t *testing.T) {
	store := newFakeStore()
	store.failDel = true
	p := testPipeline(t, store, &fakeEmbedder{})

	_, err := p.ReingestProfile(context.Background(), 1, "Summary.", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *ConsistencyError
	if errors.As(err, &ce) {
		t.Fatalf("delete failure must not be a ConsistencyError: %v", err)
	}
}

func TestEmbedRetriesProviderErrors(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{failures: 2, err: &ProviderError{Op: "embed", Err: errors.New("rate limited")}}
	p := testPipeline(t, store, embedder)

	count, err := p.IngestDocument(context.Background(), 1, "Some document text.", SourceCVDocument)
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 chunk, got %d", count)
	}
	if embedder.calls != 3 {
		t.Fatalf("expected 3 attempts (2 failures + success), got %d", embedder.calls)
	}
}

func TestEmbedDoesNotRetryValidationErrors(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{failures: 5, err: &ValidationError{Msg: "bad input"}}
	p := testPipeline(t, store, embedder)

	_, err := p.IngestDocument(context.Background(), 1, "Some document text.", SourceCVDocument)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if embedder.calls != 1 {
		t.Fatalf("validation errors must not be retried, got %d attempts", embedder.calls)
	}
}

func TestEmbedRetriesExhausted(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{failures: 10, err: &ProviderError{Op: "embed", Err: errors.New("down")}}
	p := testPipeline(t, store, embedder)

	_, err := p.IngestDocument(context.Background(), 1, "Some document text.", SourceCVDocument)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError after exhausted retries, got %v", err)
	}
	if embedder.calls != 3 {
		t.Fatalf("expected 1 + 2 retries, got %d attempts", embedder.calls)
	}
	if store.count(1) != 0 {
		t.Fatal("nothing must be written when embedding fails")
	}
}

func TestConcurrentReingestSerialized(t *testing.T) {
	store := newFakeStore()
	p := testPipeline(t, store, &fakeEmbedder{})
	summary, experiences, projects := sampleProfile()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.ReingestProfile(context.Background(), 1, fmt.Sprintf("%s v%d", summary, i), experiences, projects)
			if err != nil {
				t.Errorf("reingest %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	// every racer replaced the full set, so exactly one set remains
	if got := store.count(1); got != 3 {
		t.Fatalf("store holds %d chunks, want 3", got)
	}
}
