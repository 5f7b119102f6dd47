package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"lectureRAG/config"
	"lectureRAG/core"
	"lectureRAG/embedding"
)

// MilvusIndex stores chunk embeddings in a Milvus collection with an HNSW
// cosine index. Milvus offers no cross-call transaction, so a rebuild is
// delete-by-expression followed by a single bulk insert; rebuilds for the same
// lecture are last-writer-wins and must not run concurrently.
type MilvusIndex struct {
	mc   client.Client
	coll string
	dim  int
}

func newMilvusIndex(ctx context.Context, cfg *config.Config) (*MilvusIndex, error) {
	mc, err := client.NewClient(ctx, client.Config{
		Address:  cfg.MilvusAddr,
		Username: os.Getenv("MILVUS_USERNAME"),
		Password: os.Getenv("MILVUS_PASSWORD"),
		APIKey:   os.Getenv("MILVUS_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}

	s := &MilvusIndex{mc: mc, coll: cfg.MilvusCollection, dim: cfg.EmbeddingDimensions}
	if err := s.ensureSchemaAndIndex(ctx); err != nil {
		mc.Close()
		return nil, err
	}
	return s, nil
}

func (s *MilvusIndex) ensureSchemaAndIndex(ctx context.Context) error {
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema().WithName(s.coll)
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("lecture_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("chunk_index").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("start").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("end").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("timestamped").WithDataType(entity.FieldTypeBool))
		schema.WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func lectureExpr(lectureID string) string {
	return fmt.Sprintf("lecture_id == \"%s\"", strings.ReplaceAll(lectureID, "\"", "\\\""))
}

func (s *MilvusIndex) Rebuild(ctx context.Context, lectureID string, chunks []core.Chunk, emb embedding.Embedder) (int, error) {
	recs, err := embedChunks(ctx, lectureID, chunks, emb)
	if err != nil {
		return 0, err
	}

	if err := s.mc.Delete(ctx, s.coll, "", lectureExpr(lectureID)); err != nil {
		return 0, fmt.Errorf("delete prior chunks: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	lectureIDs := make([]string, 0, len(recs))
	indices := make([]int64, 0, len(recs))
	starts := make([]float64, 0, len(recs))
	ends := make([]float64, 0, len(recs))
	timestamped := make([]bool, 0, len(recs))
	texts := make([]string, 0, len(recs))
	vectors := make([][]float32, 0, len(recs))

	for _, rec := range recs {
		lectureIDs = append(lectureIDs, lectureID)
		indices = append(indices, int64(rec.chunk.Index))
		var start, end float64
		if rec.chunk.HasTimestamps() {
			start, end = *rec.chunk.Start, *rec.chunk.End
		}
		starts = append(starts, start)
		ends = append(ends, end)
		timestamped = append(timestamped, rec.chunk.HasTimestamps())
		texts = append(texts, rec.chunk.Text)
		vectors = append(vectors, rec.vector)
	}

	_, err = s.mc.Insert(ctx, s.coll, "",
		entity.NewColumnVarChar("lecture_id", lectureIDs),
		entity.NewColumnInt64("chunk_index", indices),
		entity.NewColumnDouble("start", starts),
		entity.NewColumnDouble("end", ends),
		entity.NewColumnBool("timestamped", timestamped),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnFloatVector("vector", s.dim, vectors),
	)
	if err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}
	return len(recs), nil
}

func (s *MilvusIndex) Search(ctx context.Context, lectureID string, queryVec []float32, topK int, threshold float64) ([]core.RetrievalResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	existing, err := s.mc.Query(ctx, s.coll, nil, lectureExpr(lectureID), []string{"chunk_index"}, client.WithLimit(1))
	if err != nil {
		return nil, fmt.Errorf("query lecture: %w", err)
	}
	if len(existing) == 0 || existing[0].Len() == 0 {
		return nil, &core.NotFoundError{LectureID: lectureID, Resource: "index"}
	}

	sp, _ := entity.NewIndexHNSWSearchParam(74)
	res, err := s.mc.Search(ctx, s.coll, []string{}, lectureExpr(lectureID),
		[]string{"chunk_index", "start", "end", "timestamped", "text"},
		[]entity.Vector{entity.FloatVector(queryVec)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	var results []core.RetrievalResult
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var rr core.RetrievalResult
			rr.Similarity = float64(r.Scores[i])
			if c, ok := cols["chunk_index"].(*entity.ColumnInt64); ok {
				if data := c.Data(); i < len(data) {
					rr.ChunkIndex = int(data[i])
				}
			}
			if c, ok := cols["text"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					rr.ChunkText = data[i]
				}
			}
			hasTS := false
			if c, ok := cols["timestamped"].(*entity.ColumnBool); ok {
				if data := c.Data(); i < len(data) {
					hasTS = data[i]
				}
			}
			if hasTS {
				if c, ok := cols["start"].(*entity.ColumnDouble); ok {
					if data := c.Data(); i < len(data) {
						v := data[i]
						rr.Start = &v
					}
				}
				if c, ok := cols["end"].(*entity.ColumnDouble); ok {
					if data := c.Data(); i < len(data) {
						v := data[i]
						rr.End = &v
					}
				}
			}
			results = append(results, rr)
		}
	}
	return rank(results, topK, threshold), nil
}

func (s *MilvusIndex) Close(ctx context.Context) error {
	return s.mc.Close()
}

var _ VectorIndex = (*MilvusIndex)(nil)
