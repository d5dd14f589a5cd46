package rag

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
)

type embedderModel interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder adapts an embedding backend for queries and document batches.
type Embedder struct {
	embedder embeddings.Embedder
}

func NewEmbedder(model embedderModel) (*Embedder, error) {
	embedder, err := embeddings.NewEmbedder(model)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &Embedder{embedder: embedder}, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return out, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	return out, nil
}
