package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"lectureRAG/config"
	"lectureRAG/core"
	"lectureRAG/embedding"
)

// PgVectorIndex stores chunk embeddings in PostgreSQL with the pgvector
// extension. The per-lecture rebuild runs in a single transaction (delete all
// prior rows, insert the staged set), so a mid-insert failure rolls back and
// the old index stays queryable.
type PgVectorIndex struct {
	pool *pgxpool.Pool
	dim  int
}

func newPgVectorIndex(ctx context.Context, cfg *config.Config) (*PgVectorIndex, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PgVectorIndex{pool: pool, dim: cfg.EmbeddingDimensions}
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVectorIndex) ensureTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	tableQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS lecture_chunks (
			id BIGSERIAL PRIMARY KEY,
			lecture_id VARCHAR(255) NOT NULL,
			chunk_index INT NOT NULL,
			start_time DOUBLE PRECISION,
			end_time DOUBLE PRECISION,
			text TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(lecture_id, chunk_index)
		);
	`, s.dim)
	if _, err := s.pool.Exec(ctx, tableQuery); err != nil {
		return fmt.Errorf("create lecture_chunks table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_lecture_chunks_lecture_id ON lecture_chunks(lecture_id);",
		"CREATE INDEX IF NOT EXISTS idx_lecture_chunks_embedding ON lecture_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);",
	}
	for _, q := range indexes {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func (s *PgVectorIndex) Rebuild(ctx context.Context, lectureID string, chunks []core.Chunk, emb embedding.Embedder) (int, error) {
	recs, err := embedChunks(ctx, lectureID, chunks, emb)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin rebuild transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM lecture_chunks WHERE lecture_id = $1", lectureID); err != nil {
		return 0, fmt.Errorf("delete prior chunks: %w", err)
	}
	for _, rec := range recs {
		_, err := tx.Exec(ctx, `
			INSERT INTO lecture_chunks (lecture_id, chunk_index, start_time, end_time, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, lectureID, rec.chunk.Index, rec.chunk.Start, rec.chunk.End, rec.chunk.Text, pgvector.NewVector(rec.vector))
		if err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", rec.chunk.Index, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit rebuild: %w", err)
	}
	return len(recs), nil
}

func (s *PgVectorIndex) Search(ctx context.Context, lectureID string, queryVec []float32, topK int, threshold float64) ([]core.RetrievalResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM lecture_chunks WHERE lecture_id = $1", lectureID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	if count == 0 {
		return nil, &core.NotFoundError{LectureID: lectureID, Resource: "index"}
	}

	vec := pgvector.NewVector(queryVec)
	rows, err := s.pool.Query(ctx, `
		SELECT chunk_index, start_time, end_time, text,
		       1 - (embedding <=> $1) AS similarity
		FROM lecture_chunks
		WHERE lecture_id = $2 AND 1 - (embedding <=> $1) > $3
		ORDER BY embedding <=> $1 ASC, chunk_index ASC
		LIMIT $4
	`, vec, lectureID, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	results := make([]core.RetrievalResult, 0, topK)
	for rows.Next() {
		var r core.RetrievalResult
		if err := rows.Scan(&r.ChunkIndex, &r.Start, &r.End, &r.ChunkText, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgVectorIndex) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

var _ VectorIndex = (*PgVectorIndex)(nil)
