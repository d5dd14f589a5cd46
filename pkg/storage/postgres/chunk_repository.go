package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/rfcpilot/rfcpilot/pkg/rag"
)

// ChunkRepository persists embedded document chunks.
type ChunkRepository struct {
	db *DB
}

func NewChunkRepository(db *DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ReplaceForSource atomically swaps the stored chunks of one document.
func (r *ChunkRepository) ReplaceForSource(ctx context.Context, source string, chunks []rag.Chunk) error {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE source = $1`, source); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(
			`INSERT INTO chunks (source, seq, content, embedding) VALUES ($1, $2, $3, $4)`,
			chunk.Source, chunk.Seq, chunk.Content, pgvector.NewVector(chunk.Embedding),
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// Search returns the chunks most similar to the query embedding, scored
// with cosine similarity and ordered descending.
func (r *ChunkRepository) Search(ctx context.Context, req rag.SearchRequest) ([]rag.ScoredChunk, error) {
	var sb strings.Builder
	args := []any{pgvector.NewVector(req.QueryEmbedding)}

	sb.WriteString(`SELECT source, seq, content, (1 - (embedding <=> $1)) AS similarity FROM chunks`)

	var conditions []string
	if len(req.Sources) > 0 {
		args = append(args, req.Sources)
		conditions = append(conditions, fmt.Sprintf("source = ANY($%d)", len(args)))
	}
	if req.MinSimilarity > 0 {
		args = append(args, req.MinSimilarity)
		conditions = append(conditions, fmt.Sprintf("(1 - (embedding <=> $1)) > $%d", len(args)))
	}
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	sb.WriteString(" ORDER BY similarity DESC")

	if req.Limit > 0 {
		args = append(args, req.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := r.db.Pool().Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []rag.ScoredChunk
	for rows.Next() {
		var chunk rag.ScoredChunk
		if err := rows.Scan(&chunk.Source, &chunk.Seq, &chunk.Content, &chunk.Similarity); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		results = append(results, chunk)
	}

	return results, rows.Err()
}

// ListBySources returns all chunks for the given sources, or every chunk
// when sources is empty.
func (r *ChunkRepository) ListBySources(ctx context.Context, sources []string) ([]rag.Chunk, error) {
	query := `SELECT source, seq, content FROM chunks ORDER BY source, seq`
	args := []any{}
	if len(sources) > 0 {
		query = `SELECT source, seq, content FROM chunks WHERE source = ANY($1) ORDER BY source, seq`
		args = append(args, sources)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		var chunk rag.Chunk
		if err := rows.Scan(&chunk.Source, &chunk.Seq, &chunk.Content); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}
