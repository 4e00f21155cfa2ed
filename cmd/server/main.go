package main

import (
	"log"
	"net/http"
	"time"

	"flashgen/internal/api"
	"flashgen/internal/config"
	"flashgen/internal/db"
	"flashgen/internal/difficulty"
	"flashgen/internal/generator"
	"flashgen/internal/logger"
	"flashgen/internal/pipeline"
	"flashgen/internal/services"
)

func main() {
	cfg := config.Load()
	logg := logger.Setup(cfg.LogLevel)

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	flashcardService := services.NewFlashcardService(conn)
	documentService := services.NewDocumentService(conn, cfg.UploadDir)

	gen := generator.NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIEndpoint)
	if cfg.OpenAIKey == "" {
		logg.Warn("OPENAI_API_KEY not set, generation requests will fail")
	}

	defaults := pipeline.Options{
		TargetChunkSize: cfg.ChunkSize,
		ChunkLookback:   cfg.ChunkLookback,
		MinCards:        cfg.MinCards,
		Generation: generator.Config{
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     float32(cfg.Temperature),
			Sampling:        true,
			CandidateCount:  1,
		},
		Timeout:    cfg.GenerationTimeout,
		Thresholds: difficulty.DefaultThresholds(),
	}

	server := api.NewServer(
		pipeline.New(gen, logg),
		flashcardService,
		documentService,
		defaults,
		logg,
	)

	logg.Info("listening", "addr", cfg.Addr, "model", cfg.OpenAIModel)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}
