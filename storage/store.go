package storage

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"lectureRAG/config"
	"lectureRAG/core"
	"lectureRAG/embedding"
)

// VectorIndex persists chunk vectors per lecture and answers similarity
// queries. Rebuild is transactional at lecture granularity: a failure part way
// through leaves the previously stored records fully queryable, and a search
// never observes a mixed old/new state.
type VectorIndex interface {
	Rebuild(ctx context.Context, lectureID string, chunks []core.Chunk, emb embedding.Embedder) (int, error)
	Search(ctx context.Context, lectureID string, queryVec []float32, topK int, threshold float64) ([]core.RetrievalResult, error)
	Close(ctx context.Context) error
}

const defaultTopK = 5

// NewVectorIndex selects the backend from config.
func NewVectorIndex(ctx context.Context, cfg *config.Config) (VectorIndex, error) {
	switch cfg.Store {
	case "pgvector":
		return newPgVectorIndex(ctx, cfg)
	case "milvus":
		return newMilvusIndex(ctx, cfg)
	case "", "memory":
		return NewMemoryIndex(), nil
	default:
		return nil, &core.ConfigError{Reason: fmt.Sprintf("unknown store backend %q", cfg.Store)}
	}
}

type record struct {
	chunk  core.Chunk
	vector []float32
}

// embedChunks stages embeddings for a rebuild. Per-item provider failures drop
// the item and continue; a dimension mismatch aborts the whole rebuild because
// the staged set could no longer be trusted.
func embedChunks(ctx context.Context, lectureID string, chunks []core.Chunk, emb embedding.Embedder) ([]record, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	results := emb.EmbedDocuments(ctx, texts)

	recs := make([]record, 0, len(chunks))
	for i, res := range results {
		if res.Err != nil {
			if core.IsConfigError(res.Err) {
				return nil, res.Err
			}
			log.Printf("lecture %s: embedding chunk %d failed, skipping: %v", lectureID, chunks[i].Index, res.Err)
			continue
		}
		recs = append(recs, record{chunk: chunks[i], vector: res.Vector})
	}
	return recs, nil
}

// Cosine is dot(a,b)/(|a||b|), defined as 0 when either vector has zero
// magnitude so degenerate embeddings rank last instead of failing a query.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// rank sorts by similarity descending with ties broken by ascending chunk
// index, drops candidates at or below threshold, and truncates to topK.
func rank(results []core.RetrievalResult, topK int, threshold float64) []core.RetrievalResult {
	kept := make([]core.RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.Similarity > threshold {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Similarity != kept[j].Similarity {
			return kept[i].Similarity > kept[j].Similarity
		}
		return kept[i].ChunkIndex < kept[j].ChunkIndex
	})
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// ---------------- Memory implementation ----------------

// MemoryIndex keeps records in process memory. Rebuild stages the replacement
// outside the lock and swaps it in whole, so concurrent searches see either
// the old set or the new set, never a mix.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string][]record
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: map[string][]record{}}
}

func (s *MemoryIndex) Rebuild(ctx context.Context, lectureID string, chunks []core.Chunk, emb embedding.Embedder) (int, error) {
	recs, err := embedChunks(ctx, lectureID, chunks, emb)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.docs[lectureID] = recs
	s.mu.Unlock()
	return len(recs), nil
}

func (s *MemoryIndex) Search(ctx context.Context, lectureID string, queryVec []float32, topK int, threshold float64) ([]core.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, ok := s.docs[lectureID]
	if !ok {
		return nil, &core.NotFoundError{LectureID: lectureID, Resource: "index"}
	}
	results := make([]core.RetrievalResult, 0, len(recs))
	for _, rec := range recs {
		results = append(results, core.RetrievalResult{
			ChunkText:  rec.chunk.Text,
			Similarity: Cosine(queryVec, rec.vector),
			Start:      rec.chunk.Start,
			End:        rec.chunk.End,
			ChunkIndex: rec.chunk.Index,
		})
	}
	return rank(results, topK, threshold), nil
}

func (s *MemoryIndex) Close(ctx context.Context) error { return nil }

var _ VectorIndex = (*MemoryIndex)(nil)
