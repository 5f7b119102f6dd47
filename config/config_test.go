package config

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.Store != "memory" {
		t.Errorf("default store = %q, want memory", cfg.Store)
	}
	if cfg.MaxChunkChars != 1000 || cfg.OverlapChars != 200 || cfg.OverlapWords != 20 {
		t.Errorf("unexpected chunking defaults: %d/%d/%d", cfg.MaxChunkChars, cfg.OverlapChars, cfg.OverlapWords)
	}
	if cfg.TopK != 5 || cfg.SimilarityThreshold != 0.7 {
		t.Errorf("unexpected retrieval defaults: top_k=%d threshold=%v", cfg.TopK, cfg.SimilarityThreshold)
	}
	if cfg.MaxContextChars != 4000 || cfg.SummaryChunkChars != 3000 {
		t.Errorf("unexpected context defaults: %d/%d", cfg.MaxContextChars, cfg.SummaryChunkChars)
	}
	if cfg.EmbeddingDimensions != 1536 {
		t.Errorf("unexpected default dimensions: %d", cfg.EmbeddingDimensions)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("API_KEY", "env-key")
	t.Setenv("STORE", "  PgVector ")
	t.Setenv("EMBEDDING_DIMENSIONS", "768")

	cfg := &Config{Store: "memory"}
	applyEnv(cfg)
	applyDefaults(cfg)

	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Store != "pgvector" {
		t.Errorf("store must be trimmed and lowercased, got %q", cfg.Store)
	}
	if cfg.EmbeddingDimensions != 768 {
		t.Errorf("EmbeddingDimensions = %d", cfg.EmbeddingDimensions)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error without an API key")
	}
	if !strings.Contains(err.Error(), "API key is required") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.OverlapChars = cfg.MaxChunkChars
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when overlap_chars >= max_chunk_chars")
	}
}

func TestHasValidAPI(t *testing.T) {
	cfg := &Config{APIKey: "  ", BaseURL: "https://api.openai.com/v1"}
	if cfg.HasValidAPI() {
		t.Error("blank API key must not count as configured")
	}
	cfg.APIKey = "key"
	if !cfg.HasValidAPI() {
		t.Error("expected valid API config")
	}
}
