package rag

import (
	"context"

	"lectureRAG/core"
	"lectureRAG/embedding"
	"lectureRAG/storage"
)

// Retriever embeds a query and ranks indexed chunks by cosine similarity.
// Pure orchestration over the embedder and the vector index.
type Retriever struct {
	emb   embedding.Embedder
	index storage.VectorIndex
}

func NewRetriever(emb embedding.Embedder, index storage.VectorIndex) *Retriever {
	return &Retriever{emb: emb, index: index}
}

// Retrieve returns the top matching chunks above threshold. A failed query
// embedding propagates as an error; it is never flattened into an empty
// result, since "provider down" and "nothing relevant" mean different things
// to the caller.
func (r *Retriever) Retrieve(ctx context.Context, lectureID, query string, topK int, threshold float64) ([]core.RetrievalResult, error) {
	vec, err := r.emb.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.index.Search(ctx, lectureID, vec, topK, threshold)
}
