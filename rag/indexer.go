package rag

import (
	"context"
	"log"

	"lectureRAG/config"
	"lectureRAG/core"
	"lectureRAG/embedding"
	"lectureRAG/storage"
	"lectureRAG/transcript"
)

// Indexer runs the build side of the pipeline: load a lecture's transcript,
// chunk it, embed the chunks, and replace the lecture's records in the vector
// index. Chunks are discarded after embedding; the index is the durable
// artifact.
type Indexer struct {
	store *transcript.Store
	emb   embedding.Embedder
	index storage.VectorIndex
	cfg   *config.Config
}

func NewIndexer(cfg *config.Config, store *transcript.Store, emb embedding.Embedder, index storage.VectorIndex) *Indexer {
	return &Indexer{store: store, emb: emb, index: index, cfg: cfg}
}

// Rebuild re-derives the lecture's index from its current transcript. The
// whole prior record set is replaced; there is no incremental patching.
func (ix *Indexer) Rebuild(ctx context.Context, lectureID string) (chunked, stored int, err error) {
	doc, err := ix.store.Load(lectureID)
	if err != nil {
		return 0, 0, err
	}

	var chunks []core.Chunk
	if len(doc.Segments) > 0 {
		chunks = transcript.ChunkSegments(doc.Segments, ix.cfg.MaxChunkChars, ix.cfg.OverlapChars)
	} else {
		chunks = transcript.ChunkText(doc.Text, ix.cfg.MaxChunkChars, ix.cfg.OverlapWords)
	}

	stored, err = ix.index.Rebuild(ctx, lectureID, chunks, ix.emb)
	if err != nil {
		return len(chunks), 0, err
	}
	log.Printf("lecture %s: indexed %d/%d chunks", lectureID, stored, len(chunks))
	return len(chunks), stored, nil
}
