package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type DB struct {
	cfg  *Config
	pool *pgxpool.Pool
}

func NewDB(cfg *Config) *DB {
	return &DB{cfg: cfg}
}

func (d *DB) Pool() *pgxpool.Pool {
	if d.pool == nil {
		panic("db not connected, call DB.Connect() first")
	}
	return d.pool
}

// Connect connects to Postgres and optionally creates the schema.
// embeddingDim is the width of the chunk embedding column; changing the
// embedding model requires re-indexing into a fresh schema.
func (d *DB) Connect(ctx context.Context, embeddingDim int) error {
	poolCfg, err := pgxpool.ParseConfig(d.cfg.DSN())
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	d.pool = pool

	// Optional schema creation for local/dev environments.
	if d.cfg.AutoMigrate {
		if err := d.migrate(ctx, embeddingDim); err != nil {
			return fmt.Errorf("create schema resources: %w", err)
		}
	}

	return nil
}

func (d *DB) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

func (d *DB) migrate(ctx context.Context, embeddingDim int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			source TEXT PRIMARY KEY,
			file_hash TEXT NOT NULL,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			last_modified DOUBLE PRECISION NOT NULL,
			processed_time TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL REFERENCES documents(source) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, embeddingDim),
		`CREATE INDEX IF NOT EXISTS chunks_source_idx ON chunks (source)`,
	}

	for _, stmt := range statements {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}

	return nil
}
