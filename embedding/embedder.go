package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"lectureRAG/config"
	"lectureRAG/core"
)

// Result is the outcome of embedding one text in a batch. Items fail
// independently: a provider error on one text never aborts or corrupts the
// vectors that already succeeded.
type Result struct {
	Vector []float32
	Err    error
}

// Embedder maps text to fixed-width vectors. One implementation covers both
// hosted providers and local inference servers, since either speaks the same
// HTTP embedding contract; tests substitute a fake Client.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) []Result
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Client is the slice of the go-openai surface the embedder needs.
type Client interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type OpenAIEmbedder struct {
	cli   Client
	model string
	dim   int
	limit int
}

func NewOpenAIEmbedder(cfg *config.Config) (*OpenAIEmbedder, error) {
	if !cfg.HasValidAPI() {
		return nil, &core.ConfigError{Reason: "embedding provider requires api_key and base_url"}
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	return &OpenAIEmbedder{
		cli:   openai.NewClientWithConfig(clientConfig),
		model: cfg.EmbeddingModel,
		dim:   cfg.EmbeddingDimensions,
		limit: cfg.ProviderConcurrency,
	}, nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dim }

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedOne(ctx, text)
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedDocuments embeds texts in one provider call when possible. If the batch
// call fails, each text is retried independently under the concurrency limit,
// so a single malformed input only fails its own slot.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) []Result {
	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results
	}

	resp, err := e.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err == nil && len(resp.Data) == len(texts) {
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(results) {
				continue
			}
			vec, dimErr := e.checkDimension(d.Embedding)
			results[d.Index] = Result{Vector: vec, Err: dimErr}
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(e.limit)
	for i := range texts {
		i := i
		g.Go(func() error {
			vec, err := e.embedOne(ctx, texts[i])
			results[i] = Result{Vector: vec, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

func (e *OpenAIEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, &core.ProviderError{Op: "embed", Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &core.ProviderError{Op: "embed", Err: fmt.Errorf("no embeddings returned")}
	}
	return e.checkDimension(resp.Data[0].Embedding)
}

// checkDimension rejects vectors whose width does not match the configured
// model. Mixing dimensionalities in one index is a configuration fault, not a
// provider hiccup.
func (e *OpenAIEmbedder) checkDimension(vec []float32) ([]float32, error) {
	if e.dim > 0 && len(vec) != e.dim {
		return nil, &core.ConfigError{
			Reason: fmt.Sprintf("embedding dimension %d does not match configured %d; check embedding_model and embedding_dimensions", len(vec), e.dim),
		}
	}
	return vec, nil
}
