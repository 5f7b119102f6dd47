package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"lectureRAG/config"
	"lectureRAG/core"
	"lectureRAG/storage"
	"lectureRAG/transcript"
)

func newSummarizeEngine(t *testing.T, cfg *config.Config, chat *fakeChat) (*Engine, *transcript.Store) {
	t.Helper()
	store, err := transcript.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	emb := &fakeEmbedder{}
	engine := NewEngine(cfg, store, NewRetriever(emb, storage.NewMemoryIndex()), chat)
	return engine, store
}

func TestSummarizeMissingTranscript(t *testing.T) {
	engine, _ := newSummarizeEngine(t, testConfig(), &fakeChat{})
	_, err := engine.Summarize(context.Background(), "missing")
	if !core.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	chat := &fakeChat{}
	engine, store := newSummarizeEngine(t, testConfig(), chat)
	if err := store.SaveText("lec", "   "); err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	summary, err := engine.Summarize(context.Background(), "lec")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != noTranscriptResponse {
		t.Errorf("expected fixed empty-transcript response, got %q", summary)
	}
	if len(chat.calls()) != 0 {
		t.Error("chat model must not be called for an empty transcript")
	}
}

func TestSummarizeSingleChunk(t *testing.T) {
	chat := &fakeChat{respond: func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return chatReply("  Graphs, nodes, and edges.  "), nil
	}}
	engine, store := newSummarizeEngine(t, testConfig(), chat)
	if err := store.SaveText("lec", "a short lecture about graphs"); err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	summary, err := engine.Summarize(context.Background(), "lec")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "Graphs, nodes, and edges." {
		t.Errorf("expected trimmed chunk summary, got %q", summary)
	}

	calls := chat.calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 chat call for a single chunk, got %d", len(calls))
	}
	req := calls[0]
	if req.MaxTokens != 200 || req.Temperature != 0.5 {
		t.Errorf("unexpected chunk summary params: max_tokens=%d temperature=%v", req.MaxTokens, req.Temperature)
	}
	if req.Messages[0].Content != chunkSummaryPrompt {
		t.Errorf("unexpected system prompt: %q", req.Messages[0].Content)
	}
	if !strings.HasPrefix(req.Messages[1].Content, "Please summarize this lecture excerpt:\n\n") {
		t.Errorf("unexpected user prompt prefix: %q", req.Messages[1].Content)
	}
}

func TestSummarizeFailedChunkSkipped(t *testing.T) {
	chat := &fakeChat{respond: func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		content := req.Messages[1].Content
		switch {
		case strings.Contains(content, "BBBB"):
			return openai.ChatCompletionResponse{}, errors.New("provider 500")
		case strings.Contains(content, "aaaa"):
			return chatReply("sum-a"), nil
		default:
			return chatReply("sum-c"), nil
		}
	}}
	cfg := testConfig()
	cfg.SummaryChunkChars = 10
	engine, store := newSummarizeEngine(t, cfg, chat)
	if err := store.SaveText("lec", strings.Repeat("a", 10)+strings.Repeat("B", 10)+strings.Repeat("c", 10)); err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	summary, err := engine.Summarize(context.Background(), "lec")
	if err != nil {
		t.Fatalf("a failed chunk must not fail the summary: %v", err)
	}
	if summary != "sum-a sum-c" {
		t.Errorf("failed chunk must be skipped and order preserved, got %q", summary)
	}
}

func TestSummarizeReducePass(t *testing.T) {
	sectionSummary := strings.Repeat("s", 600)
	chat := &fakeChat{respond: func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		if req.Messages[0].Content == reduceSummaryPrompt {
			return chatReply("final reduced summary"), nil
		}
		return chatReply(sectionSummary), nil
	}}
	cfg := testConfig()
	cfg.SummaryChunkChars = 50
	engine, store := newSummarizeEngine(t, cfg, chat)
	// Two chunks; their 600-char summaries join to 1201 chars, over the reduce
	// trigger.
	if err := store.SaveText("lec", strings.Repeat("x", 100)); err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	summary, err := engine.Summarize(context.Background(), "lec")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "final reduced summary" {
		t.Errorf("expected reduced summary, got %q", summary)
	}

	var reduceReq *openai.ChatCompletionRequest
	for _, req := range chat.calls() {
		if req.Messages[0].Content == reduceSummaryPrompt {
			req := req
			reduceReq = &req
		}
	}
	if reduceReq == nil {
		t.Fatal("reduce pass was never invoked")
	}
	if reduceReq.MaxTokens != 300 {
		t.Errorf("unexpected reduce max_tokens: %d", reduceReq.MaxTokens)
	}
	if !strings.HasPrefix(reduceReq.Messages[1].Content, "Section summaries:\n\n") {
		t.Errorf("unexpected reduce user prompt prefix: %q", reduceReq.Messages[1].Content)
	}
}

func TestSummarizeReduceFailureReturnsCombined(t *testing.T) {
	sectionSummary := strings.Repeat("s", 600)
	chat := &fakeChat{respond: func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		if req.Messages[0].Content == reduceSummaryPrompt {
			return openai.ChatCompletionResponse{}, errors.New("provider down")
		}
		return chatReply(sectionSummary), nil
	}}
	cfg := testConfig()
	cfg.SummaryChunkChars = 50
	engine, store := newSummarizeEngine(t, cfg, chat)
	if err := store.SaveText("lec", strings.Repeat("x", 100)); err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	summary, err := engine.Summarize(context.Background(), "lec")
	if err != nil {
		t.Fatalf("a failed reduce pass must not fail the summary: %v", err)
	}
	if summary != sectionSummary+" "+sectionSummary {
		t.Errorf("expected combined section summaries as fallback, got %d chars", len(summary))
	}
}

func TestSplitTextRuneBoundaries(t *testing.T) {
	chunks := splitText("héllo wörld", 4)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "héll" || chunks[1] != "o wö" || chunks[2] != "rld" {
		t.Errorf("splitText must cut on rune boundaries, got %q", chunks)
	}
	if got := splitText("", 4); len(got) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(got))
	}
}
