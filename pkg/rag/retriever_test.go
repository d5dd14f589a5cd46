package rag_test

import (
	"context"
	"testing"

	"github.com/rfcpilot/rfcpilot/pkg/rag"
	"github.com/rs/zerolog"
)

type fakeEmbedderModel struct{}

func (fakeEmbedderModel) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{1, 0, 0}
	}
	return embeddings, nil
}

type fakeChunkStore struct {
	searchResults []rag.ScoredChunk
	listResults   []rag.Chunk
	lastSearch    rag.SearchRequest
	listCalled    bool
}

func (f *fakeChunkStore) Search(_ context.Context, req rag.SearchRequest) ([]rag.ScoredChunk, error) {
	f.lastSearch = req
	return f.searchResults, nil
}

func (f *fakeChunkStore) ListBySources(_ context.Context, _ []string) ([]rag.Chunk, error) {
	f.listCalled = true
	return f.listResults, nil
}

func newTestRetriever(t *testing.T, store *fakeChunkStore) *rag.Retriever {
	t.Helper()

	embedder, err := rag.NewEmbedder(fakeEmbedderModel{})
	if err != nil {
		t.Fatalf("create embedder: %v", err)
	}

	logger := zerolog.Nop()
	return rag.NewRetriever(embedder, store, &logger)
}

func TestRetriever_TopK(t *testing.T) {
	ctx := context.Background()

	t.Run("passes options through to the store", func(t *testing.T) {
		store := &fakeChunkStore{
			searchResults: []rag.ScoredChunk{
				{Chunk: rag.Chunk{Source: "rfc793", Seq: 0, Content: "TCP"}, Similarity: 0.9},
			},
		}
		retriever := newTestRetriever(t, store)

		results, err := retriever.TopK(ctx, "how does TCP work", rag.TopKOptions{
			K:             2,
			Sources:       []string{"rfc793"},
			MinSimilarity: 0.5,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(results) != 1 || results[0].Source != "rfc793" {
			t.Errorf("unexpected results: %v", results)
		}
		if store.lastSearch.Limit != 2 {
			t.Errorf("expected limit 2, got %d", store.lastSearch.Limit)
		}
		if store.lastSearch.MinSimilarity != 0.5 {
			t.Errorf("expected min similarity 0.5, got %f", store.lastSearch.MinSimilarity)
		}
		if len(store.lastSearch.Sources) != 1 || store.lastSearch.Sources[0] != "rfc793" {
			t.Errorf("expected sources forwarded, got %v", store.lastSearch.Sources)
		}
		if len(store.lastSearch.QueryEmbedding) == 0 {
			t.Error("expected query embedding")
		}
	})

	t.Run("defaults k when unset", func(t *testing.T) {
		store := &fakeChunkStore{
			searchResults: []rag.ScoredChunk{{Chunk: rag.Chunk{Source: "rfc793"}}},
		}
		retriever := newTestRetriever(t, store)

		if _, err := retriever.TopK(ctx, "query", rag.TopKOptions{}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if store.lastSearch.Limit != rag.DefaultTopK {
			t.Errorf("expected default limit %d, got %d", rag.DefaultTopK, store.lastSearch.Limit)
		}
	})

	t.Run("empty vector result without fallback", func(t *testing.T) {
		store := &fakeChunkStore{}
		retriever := newTestRetriever(t, store)

		results, err := retriever.TopK(ctx, "query", rag.TopKOptions{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(results) != 0 {
			t.Errorf("expected no results, got %v", results)
		}
		if store.listCalled {
			t.Error("expected no keyword fallback without opt-in")
		}
	})

	t.Run("keyword fallback ranks by match quality", func(t *testing.T) {
		store := &fakeChunkStore{
			listResults: []rag.Chunk{
				{Source: "rfc793", Seq: 0, Content: "completely unrelated text about birds and trees"},
				{Source: "rfc793", Seq: 1, Content: "congestion control"},
				{Source: "rfc9293", Seq: 0, Content: "congestion control algorithms in detail"},
			},
		}
		retriever := newTestRetriever(t, store)

		results, err := retriever.TopK(ctx, "congestion control", rag.TopKOptions{
			K:               2,
			KeywordFallback: true,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !store.listCalled {
			t.Fatal("expected keyword fallback to list chunks")
		}
		if len(results) == 0 {
			t.Fatal("expected keyword matches")
		}
		if len(results) > 2 {
			t.Errorf("expected at most 2 results, got %d", len(results))
		}
		if results[0].Content != "congestion control" {
			t.Errorf("expected exact match ranked first, got %q", results[0].Content)
		}
		for _, result := range results {
			if result.Similarity <= 0 || result.Similarity > 1 {
				t.Errorf("expected similarity in (0, 1], got %f", result.Similarity)
			}
		}
	})
}
