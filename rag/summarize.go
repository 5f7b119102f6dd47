package rag

import (
	"context"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"lectureRAG/core"
)

const chunkSummaryPrompt = "You are a helpful assistant that creates concise summaries of lecture content. " +
	"Focus on key concepts, main points, and important details."

const reduceSummaryPrompt = "Create a comprehensive but concise summary of the lecture based on these section summaries."

// combined per-chunk summaries longer than this get one reduce pass
const summaryReduceLimit = 1000

// Summarize produces a lecture summary by hierarchical summarization: the
// full transcript is split into fixed-size chunks with no overlap, each chunk
// is summarized independently, and an over-long concatenation is compressed by
// one summarize-the-summaries pass. A failed chunk is logged and contributes
// nothing; the operation only fails outright when the transcript is missing.
func (e *Engine) Summarize(ctx context.Context, lectureID string) (string, error) {
	doc, err := e.store.Load(lectureID)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return noTranscriptResponse, nil
	}

	chunks := splitText(text, e.cfg.SummaryChunkChars)
	parts := make([]string, len(chunks))

	var g errgroup.Group
	g.SetLimit(e.cfg.ProviderConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			summary, err := e.summarizeChunk(ctx, chunk)
			if err != nil {
				log.Printf("lecture %s: summarizing chunk %d failed, skipping: %v", lectureID, i, err)
				return nil
			}
			parts[i] = summary
			return nil
		})
	}
	g.Wait()

	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	combined := strings.Join(kept, " ")

	if len(combined) > summaryReduceLimit {
		reduced, err := e.reduceSummaries(ctx, combined)
		if err != nil {
			log.Printf("lecture %s: summary reduce pass failed, returning combined sections: %v", lectureID, err)
			return combined, nil
		}
		return reduced, nil
	}
	return combined, nil
}

func (e *Engine) summarizeChunk(ctx context.Context, chunk string) (string, error) {
	resp, err := e.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: chunkSummaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Please summarize this lecture excerpt:\n\n" + chunk},
		},
		MaxTokens:   200,
		Temperature: 0.5,
	})
	if err != nil {
		return "", &core.ProviderError{Op: "summarize_chunk", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &core.ProviderError{Op: "summarize_chunk", Err: errNoChoices}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (e *Engine) reduceSummaries(ctx context.Context, combined string) (string, error) {
	resp, err := e.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reduceSummaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Section summaries:\n\n" + combined},
		},
		MaxTokens:   300,
		Temperature: 0.5,
	})
	if err != nil {
		return "", &core.ProviderError{Op: "summarize_reduce", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &core.ProviderError{Op: "summarize_reduce", Err: errNoChoices}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type ragError string

func (e ragError) Error() string { return string(e) }

const errNoChoices = ragError("no completion choices returned")

// splitText cuts text into non-overlapping slices of at most size runes.
func splitText(text string, size int) []string {
	r := []rune(text)
	chunks := make([]string, 0, (len(r)+size-1)/size)
	for start := 0; start < len(r); start += size {
		end := start + size
		if end > len(r) {
			end = len(r)
		}
		chunks = append(chunks, string(r[start:end]))
	}
	return chunks
}
