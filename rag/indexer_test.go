package rag

import (
	"context"
	"strings"
	"testing"

	"lectureRAG/core"
	"lectureRAG/storage"
	"lectureRAG/transcript"
)

func newTestIndexer(t *testing.T) (*Indexer, *transcript.Store, *storage.MemoryIndex) {
	t.Helper()
	store, err := transcript.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	index := storage.NewMemoryIndex()
	emb := &fakeEmbedder{defaultVec: unitVec(0.9)}
	return NewIndexer(testConfig(), store, emb, index), store, index
}

func TestIndexerRebuildFromSegments(t *testing.T) {
	indexer, store, index := newTestIndexer(t)
	segments := []core.Segment{
		{Start: 0, End: 5, Text: "Intro to graphs"},
		{Start: 5, End: 12, Text: "A graph has nodes and edges"},
	}
	if err := store.Save("lec", segments); err != nil {
		t.Fatalf("Save: %v", err)
	}

	chunked, stored, err := indexer.Rebuild(context.Background(), "lec")
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if chunked != 1 || stored != 1 {
		t.Fatalf("expected 1 chunk indexed, got chunked=%d stored=%d", chunked, stored)
	}

	results, err := index.Search(context.Background(), "lec", []float32{1, 0}, 5, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Start == nil {
		t.Fatalf("indexed chunk must carry timestamps, got %+v", results)
	}
}

func TestIndexerRebuildTextFallback(t *testing.T) {
	indexer, store, index := newTestIndexer(t)
	// Over one chunk's worth of plain text, so the word-boundary fallback has
	// to produce multiple chunks.
	words := make([]string, 0, 400)
	for i := 0; i < 400; i++ {
		words = append(words, "word")
	}
	if err := store.SaveText("lec", strings.Join(words, " ")); err != nil {
		t.Fatalf("SaveText: %v", err)
	}

	chunked, stored, err := indexer.Rebuild(context.Background(), "lec")
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if chunked < 2 || stored != chunked {
		t.Fatalf("expected multiple fully stored chunks, got chunked=%d stored=%d", chunked, stored)
	}

	results, err := index.Search(context.Background(), "lec", []float32{1, 0}, 100, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Start != nil || r.End != nil {
			t.Fatalf("fallback-mode chunks must not carry timestamps: %+v", r)
		}
	}
}

func TestIndexerRebuildMissingTranscript(t *testing.T) {
	indexer, _, _ := newTestIndexer(t)
	_, _, err := indexer.Rebuild(context.Background(), "missing")
	if !core.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
