package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"lectureRAG/config"
	"lectureRAG/embedding"
	"lectureRAG/rag"
	"lectureRAG/server"
	"lectureRAG/storage"
	"lectureRAG/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		config.PrintConfigInstructions()
		log.Fatalf("invalid config: %v", err)
	}

	store, err := transcript.NewStore(filepath.Join(cfg.DataDir, "transcripts"))
	if err != nil {
		log.Fatalf("failed to init transcript store: %v", err)
	}

	embedder, err := embedding.NewOpenAIEmbedder(cfg)
	if err != nil {
		log.Fatalf("failed to init embedder: %v", err)
	}

	ctx := context.Background()
	index, err := storage.NewVectorIndex(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init vector index: %v", err)
	}
	log.Printf("Vector index initialized: %s", cfg.Store)

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	chatClient := openai.NewClientWithConfig(clientConfig)

	indexer := rag.NewIndexer(cfg, store, embedder, index)
	retriever := rag.NewRetriever(embedder, index)
	engine := rag.NewEngine(cfg, store, retriever, chatClient)
	transcriber := transcript.NewWhisperTranscriber(cfg)

	mux := http.NewServeMux()
	srv := server.New(cfg, store, indexer, engine, transcriber)
	srv.Routes(mux)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := index.Close(shutdownCtx); err != nil {
		log.Printf("index close: %v", err)
	}
	log.Println("Shutdown complete")
}
