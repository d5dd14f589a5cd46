package rag

import "time"

// Chunk is one embedded slice of a corpus document.
type Chunk struct {
	Source    string
	Seq       int
	Content   string
	Embedding []float32
}

// ScoredChunk is a chunk with its query similarity, in [0, 1] for
// cosine distance backends.
type ScoredChunk struct {
	Chunk
	Similarity float64
}

// SearchRequest describes a vector search over stored chunks.
type SearchRequest struct {
	QueryEmbedding []float32
	Sources        []string
	Limit          int
	MinSimilarity  float64
}

// DocumentRecord tracks the indexed state of one corpus document.
type DocumentRecord struct {
	Source        string
	FileHash      string
	ChunkCount    int
	LastModified  float64
	ProcessedTime time.Time
}
