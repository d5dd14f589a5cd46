package rag

import (
	"context"
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
)

const DefaultTopK = 4

// ChunkStore is the persistence surface the retriever needs.
type ChunkStore interface {
	Search(ctx context.Context, req SearchRequest) ([]ScoredChunk, error)
	ListBySources(ctx context.Context, sources []string) ([]Chunk, error)
}

// Retriever finds the corpus chunks most relevant to a query.
type Retriever struct {
	embedder *Embedder
	store    ChunkStore
	logger   *zerolog.Logger
}

func NewRetriever(embedder *Embedder, store ChunkStore, logger *zerolog.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// TopKOptions narrow a retrieval request.
type TopKOptions struct {
	K             int
	Sources       []string
	MinSimilarity float64
	// KeywordFallback enables fuzzy keyword matching when the vector
	// search returns nothing.
	KeywordFallback bool
}

// TopK embeds the query and returns the most similar chunks, scored and
// ordered by descending similarity.
func (r *Retriever) TopK(ctx context.Context, query string, opts TopKOptions) ([]ScoredChunk, error) {
	if opts.K <= 0 {
		opts.K = DefaultTopK
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.Search(ctx, SearchRequest{
		QueryEmbedding: queryEmbedding,
		Sources:        opts.Sources,
		Limit:          opts.K,
		MinSimilarity:  opts.MinSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	if len(results) == 0 && opts.KeywordFallback {
		r.logger.Debug().
			Str("query", query).
			Msg("Vector search empty, falling back to keyword match")
		return r.keywordSearch(ctx, query, opts)
	}

	return results, nil
}

// keywordSearch ranks chunks by fuzzy keyword match. Scores are derived
// from edit distance and not comparable to vector similarities.
func (r *Retriever) keywordSearch(ctx context.Context, query string, opts TopKOptions) ([]ScoredChunk, error) {
	chunks, err := r.store.ListBySources(ctx, opts.Sources)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	targets := make([]string, len(chunks))
	for i, chunk := range chunks {
		targets[i] = chunk.Content
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Sort(ranks)

	results := make([]ScoredChunk, 0, opts.K)
	for _, rank := range ranks {
		if len(results) == opts.K {
			break
		}
		results = append(results, ScoredChunk{
			Chunk:      chunks[rank.OriginalIndex],
			Similarity: 1 / float64(1+rank.Distance),
		})
	}

	return results, nil
}
