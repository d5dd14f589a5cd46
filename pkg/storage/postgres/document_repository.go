package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rfcpilot/rfcpilot/pkg/rag"
)

// DocumentRepository persists per-document indexing state.
type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Get returns the record for a source, or nil when it was never indexed.
func (r *DocumentRepository) Get(ctx context.Context, source string) (*rag.DocumentRecord, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT source, file_hash, chunk_count, last_modified, processed_time
		 FROM documents WHERE source = $1`, source)

	var rec rag.DocumentRecord
	err := row.Scan(&rec.Source, &rec.FileHash, &rec.ChunkCount, &rec.LastModified, &rec.ProcessedTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan document record: %w", err)
	}

	return &rec, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]rag.DocumentRecord, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT source, file_hash, chunk_count, last_modified, processed_time
		 FROM documents ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("query document records: %w", err)
	}
	defer rows.Close()

	var records []rag.DocumentRecord
	for rows.Next() {
		var rec rag.DocumentRecord
		if err := rows.Scan(&rec.Source, &rec.FileHash, &rec.ChunkCount, &rec.LastModified, &rec.ProcessedTime); err != nil {
			return nil, fmt.Errorf("scan document record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Upsert inserts or refreshes the record for a source.
func (r *DocumentRepository) Upsert(ctx context.Context, rec rag.DocumentRecord) error {
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO documents (source, file_hash, chunk_count, last_modified, processed_time)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (source) DO UPDATE SET
			file_hash = EXCLUDED.file_hash,
			chunk_count = EXCLUDED.chunk_count,
			last_modified = EXCLUDED.last_modified,
			processed_time = now()`,
		rec.Source, rec.FileHash, rec.ChunkCount, rec.LastModified)
	if err != nil {
		return fmt.Errorf("upsert document record: %w", err)
	}

	return nil
}

func (r *DocumentRepository) Remove(ctx context.Context, source string) error {
	_, err := r.db.Pool().Exec(ctx, `DELETE FROM documents WHERE source = $1`, source)
	if err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	return nil
}
