package agent

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"github.com/rfcpilot/rfcpilot/pkg/corpus"
	"github.com/rfcpilot/rfcpilot/pkg/rag"
	"github.com/rs/zerolog"
)

// DocumentStore persists per-document indexing state.
type DocumentStore interface {
	Get(ctx context.Context, source string) (*rag.DocumentRecord, error)
	Upsert(ctx context.Context, rec rag.DocumentRecord) error
}

// ChunkWriter persists embedded chunks.
type ChunkWriter interface {
	ReplaceForSource(ctx context.Context, source string, chunks []rag.Chunk) error
}

// Indexer runs the corpus ingestion pipeline: load, detect changes,
// chunk, embed, store.
type Indexer struct {
	logger         *zerolog.Logger
	corpusDir      string
	splitter       *rag.Splitter
	embedder       *rag.Embedder
	documents      DocumentStore
	chunks         ChunkWriter
	maxConcurrency int
}

func NewIndexer(
	logger *zerolog.Logger,
	corpusDir string,
	splitter *rag.Splitter,
	embedder *rag.Embedder,
	documents DocumentStore,
	chunks ChunkWriter,
	maxConcurrency int,
) *Indexer {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Indexer{
		logger:         logger,
		corpusDir:      corpusDir,
		splitter:       splitter,
		embedder:       embedder,
		documents:      documents,
		chunks:         chunks,
		maxConcurrency: maxConcurrency,
	}
}

// Plan returns the documents that would be (re-)indexed: new files,
// changed content, or changed mtime.
func (ix *Indexer) Plan(ctx context.Context) ([]corpus.Document, error) {
	documents, err := corpus.LoadDir(ix.logger, ix.corpusDir)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	var toProcess []corpus.Document
	for _, doc := range documents {
		needs, err := ix.needsProcessing(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("check document %s: %w", doc.Source, err)
		}
		if needs {
			toProcess = append(toProcess, doc)
		}
	}

	return toProcess, nil
}

// Run indexes every document that needs processing. Documents are
// processed concurrently; per-document failures are logged and counted
// without aborting the rest of the batch.
func (ix *Indexer) Run(ctx context.Context) error {
	documents, err := corpus.LoadDir(ix.logger, ix.corpusDir)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	if len(documents) == 0 {
		ix.logger.Info().
			Str("corpus_dir", ix.corpusDir).
			Msg("No corpus documents found")
		return nil
	}

	pool := pond.NewPool(ix.maxConcurrency)
	processed := atomic.Int32{}
	skipped := atomic.Int32{}
	errored := atomic.Int32{}

	for _, doc := range documents {
		pool.Submit(func() {
			needs, err := ix.needsProcessing(ctx, doc)
			if err != nil {
				errored.Add(1)
				ix.logger.Error().
					Err(err).
					Str("source", doc.Source).
					Msg("Failed to check document state")
				return
			}
			if !needs {
				skipped.Add(1)
				return
			}

			if err := ix.indexDocument(ctx, doc); err != nil {
				errored.Add(1)
				ix.logger.Error().
					Err(err).
					Str("source", doc.Source).
					Msg("Failed to index document")
				return
			}
			processed.Add(1)
		})
	}

	pool.StopAndWait()

	ix.logger.Info().
		Int32("processed", processed.Load()).
		Int32("skipped", skipped.Load()).
		Int32("errored", errored.Load()).
		Msg("Corpus indexing finished")

	if n := errored.Load(); n > 0 {
		return fmt.Errorf("%d documents failed to index", n)
	}

	return nil
}

func (ix *Indexer) needsProcessing(ctx context.Context, doc corpus.Document) (bool, error) {
	sig, err := corpus.FileSignature(corpus.SourcePath(ix.corpusDir, doc.Source))
	if err != nil {
		return false, fmt.Errorf("compute file signature: %w", err)
	}

	record, err := ix.documents.Get(ctx, doc.Source)
	if err != nil {
		return false, fmt.Errorf("get document record: %w", err)
	}

	if record == nil {
		return true, nil
	}

	return record.FileHash != sig.Hash || record.LastModified != sig.LastModified, nil
}

func (ix *Indexer) indexDocument(ctx context.Context, doc corpus.Document) error {
	chunks, err := ix.splitter.SplitDocument(doc)
	if err != nil {
		return fmt.Errorf("chunk document: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d embeddings", len(chunks), len(embeddings))
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	sig, err := corpus.FileSignature(corpus.SourcePath(ix.corpusDir, doc.Source))
	if err != nil {
		return fmt.Errorf("compute file signature: %w", err)
	}

	// The document record must exist before chunks reference it.
	if err := ix.documents.Upsert(ctx, rag.DocumentRecord{
		Source:       doc.Source,
		FileHash:     sig.Hash,
		ChunkCount:   len(chunks),
		LastModified: sig.LastModified,
	}); err != nil {
		return fmt.Errorf("update document record: %w", err)
	}

	if err := ix.chunks.ReplaceForSource(ctx, doc.Source, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	ix.logger.Debug().
		Str("source", doc.Source).
		Int("chunks", len(chunks)).
		Msg("Indexed document")

	return nil
}
