package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/mindscope/backend/internal/config"
	"github.com/zhouzirui/mindscope/backend/internal/handler"
	inferenceHandler "github.com/zhouzirui/mindscope/backend/internal/handler/inference"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/server"
	"github.com/zhouzirui/mindscope/backend/internal/service/ai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logging.Init(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logging.Sync()
	logger := logging.L()

	// Initialize AI service
	var replier inferenceHandler.Replier
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			logger.Warnw("failed to initialize AI service, /chat will answer 502", "provider", cfg.AI.Provider, "error", err)
		} else {
			replier = aiService
			logger.Infow("AI service initialized", "provider", cfg.AI.Provider, "historyLimit", cfg.AI.HistoryLimit)
		}
	} else {
		logger.Warnw("LLM provider not configured, skipping AI initialization", "provider", cfg.AI.Provider)
	}

	router := handler.NewInferenceRouter(replier)

	addr, err := cfg.Inference.Addr()
	if err != nil {
		logger.Fatalw("invalid inference address", "error", err)
	}

	if err := server.Run(ctx, "MindScope inference", addr, router); err != nil {
		logger.Fatalw("server error", "error", err)
	}
}
