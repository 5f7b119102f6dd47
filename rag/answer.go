package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"lectureRAG/config"
	"lectureRAG/core"
	"lectureRAG/transcript"
)

// Fixed user-visible responses. Raw provider errors go to the logs only.
const (
	noInfoResponse           = "I couldn't find relevant information in the lecture to answer your question."
	generationFailedResponse = "Sorry, I encountered an error while generating the response."
	noTranscriptResponse     = "No transcript available for summarization."
)

const answerSystemPrompt = "You are a helpful assistant that answers questions based on lecture content. " +
	"Use only the provided context to answer questions. " +
	"If the context doesn't contain enough information, say so clearly."

const (
	sourceExcerptChars    = 200
	timestampExcerptChars = 100
)

// ChatClient is the slice of the go-openai surface the engine needs; tests
// substitute a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Engine composes grounded answers and lecture summaries on top of retrieval.
type Engine struct {
	retriever *Retriever
	store     *transcript.Store
	chat      ChatClient
	cfg       *config.Config
}

func NewEngine(cfg *config.Config, store *transcript.Store, retriever *Retriever, chat ChatClient) *Engine {
	return &Engine{retriever: retriever, store: store, chat: chat, cfg: cfg}
}

// Answer retrieves the lecture chunks most similar to the question and asks
// the chat model to answer from them alone. Zero relevant chunks is a valid
// outcome with a fixed response, not an error. If generation fails after
// retrieval succeeded, the fixed apology ships with the sources and timestamp
// references that were already computed.
func (e *Engine) Answer(ctx context.Context, lectureID, question string) (core.AnswerResult, error) {
	return e.AnswerWithOptions(ctx, lectureID, question, e.cfg.TopK, e.cfg.SimilarityThreshold)
}

// AnswerWithOptions is Answer with per-request retrieval parameters.
func (e *Engine) AnswerWithOptions(ctx context.Context, lectureID, question string, topK int, threshold float64) (core.AnswerResult, error) {
	hits, err := e.retriever.Retrieve(ctx, lectureID, question, topK, threshold)
	if err != nil {
		return core.AnswerResult{}, err
	}
	if len(hits) == 0 {
		return core.AnswerResult{
			Response:      noInfoResponse,
			Sources:       []core.Source{},
			TimestampRefs: []core.TimestampRef{},
		}, nil
	}

	contextStr, sources, refs := buildContext(hits, e.cfg.MaxContextChars)

	userPrompt := fmt.Sprintf(
		"Context from lecture:\n%s\n\nQuestion: %s\n\nPlease provide a comprehensive answer based on the lecture content.",
		contextStr, question)

	resp, err := e.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: answerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Printf("lecture %s: answer generation failed: %v", lectureID, err)
		return core.AnswerResult{
			Response:      generationFailedResponse,
			Sources:       sources,
			TimestampRefs: refs,
		}, nil
	}

	return core.AnswerResult{
		Response:      strings.TrimSpace(resp.Choices[0].Message.Content),
		Sources:       sources,
		TimestampRefs: refs,
	}, nil
}

// buildContext concatenates chunk texts in ranked order, blank-line separated,
// stopping once the character budget would be exceeded. Sources and timestamp
// references cover every retrieved chunk regardless of the context cutoff.
func buildContext(hits []core.RetrievalResult, maxChars int) (string, []core.Source, []core.TimestampRef) {
	var b strings.Builder
	sources := make([]core.Source, 0, len(hits))
	refs := make([]core.TimestampRef, 0, len(hits))

	for _, hit := range hits {
		sources = append(sources, core.Source{
			Excerpt:    core.Excerpt(hit.ChunkText, sourceExcerptChars),
			Similarity: hit.Similarity,
			ChunkIndex: hit.ChunkIndex,
		})
		if hit.Start != nil && hit.End != nil {
			refs = append(refs, core.TimestampRef{
				Start:   *hit.Start,
				End:     *hit.End,
				Excerpt: core.Excerpt(hit.ChunkText, timestampExcerptChars),
			})
		}

		sep := 0
		if b.Len() > 0 {
			sep = 2
		}
		if b.Len()+sep+len(hit.ChunkText) > maxChars {
			continue
		}
		if sep > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(hit.ChunkText)
	}
	return b.String(), sources, refs
}
