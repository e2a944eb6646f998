package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps chunks in Postgres with pgvector. The chunk table is
// untyped in dimension so one database serves any embedding model; the
// files table records what each file was indexed with.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PGStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS indexed_files (
  collection   text NOT NULL,
  file_path    text NOT NULL,
  content_hash text NOT NULL,
  embed_model  text NOT NULL,
  dim          int  NOT NULL,
  updated_at   timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (collection, file_path)
)`,
		`CREATE TABLE IF NOT EXISTS chunks (
  collection  text NOT NULL,
  file_path   text NOT NULL,
  chunk_index int  NOT NULL,
  start_line  int  NOT NULL,
  end_line    int  NOT NULL,
  text        text NOT NULL,
  embedding   vector,
  PRIMARY KEY (collection, file_path, chunk_index)
)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PGStore) ReplaceFileChunks(ctx context.Context, collection string, file FileRef, chunks []Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx replace chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE collection=$1 AND file_path=$2`, collection, file.Path); err != nil {
		return fmt.Errorf("delete old chunks for %s: %w", file.Path, err)
	}
	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (collection, file_path, chunk_index, start_line, end_line, text, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7::vector)`,
			collection, file.Path, c.Index, c.StartLine, c.EndLine, c.Text, ToLiteral(c.Embedding))
		if err != nil {
			return fmt.Errorf("insert chunk %s[%d]: %w", file.Path, c.Index, err)
		}
	}
	_, err = tx.Exec(ctx, `
INSERT INTO indexed_files (collection, file_path, content_hash, embed_model, dim, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (collection, file_path)
DO UPDATE SET content_hash = EXCLUDED.content_hash,
              embed_model  = EXCLUDED.embed_model,
              dim          = EXCLUDED.dim,
              updated_at   = now()`,
		collection, file.Path, file.Hash, file.EmbedModel, file.Dim)
	if err != nil {
		return fmt.Errorf("upsert file state %s: %w", file.Path, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace chunks: %w", err)
	}
	return nil
}

func (s *PGStore) Query(ctx context.Context, collection string, vec []float32, model string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 4
	}
	if stale, err := s.stalePaths(ctx, collection, model, len(vec)); err != nil {
		return nil, err
	} else if len(stale) > 0 {
		return nil, &StalenessError{Collection: collection, WantModel: model, WantDim: len(vec), Paths: stale}
	}

	rows, err := s.pool.Query(ctx, `
SELECT file_path, chunk_index, start_line, text,
       1 - (embedding <=> $2::vector) AS score
FROM chunks
WHERE collection = $1
  AND embedding IS NOT NULL
ORDER BY embedding <=> $2::vector ASC, chunk_index ASC
LIMIT $3`, collection, ToLiteral(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]Hit, 0, topK)
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.FilePath, &h.ChunkIndex, &h.StartLine, &h.Text, &h.Score); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

func (s *PGStore) stalePaths(ctx context.Context, collection, model string, dim int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
SELECT file_path FROM indexed_files
WHERE collection = $1 AND (embed_model <> $2 OR dim <> $3)
ORDER BY file_path`, collection, model, dim)
	if err != nil {
		return nil, fmt.Errorf("query stale files: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan stale file: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) DeleteFile(ctx context.Context, collection, filePath string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx delete file: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE collection=$1 AND file_path=$2`, collection, filePath); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", filePath, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM indexed_files WHERE collection=$1 AND file_path=$2`, collection, filePath); err != nil {
		return fmt.Errorf("delete file state for %s: %w", filePath, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete file: %w", err)
	}
	return nil
}

func (s *PGStore) FileState(ctx context.Context, collection, filePath string) (*FileState, error) {
	var st FileState
	err := s.pool.QueryRow(ctx, `
SELECT content_hash, embed_model, dim FROM indexed_files
WHERE collection=$1 AND file_path=$2`, collection, filePath).
		Scan(&st.Hash, &st.EmbedModel, &st.Dim)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query file state %s: %w", filePath, err)
	}
	return &st, nil
}

func (s *PGStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// ToLiteral renders a vector in pgvector's text format.
func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
