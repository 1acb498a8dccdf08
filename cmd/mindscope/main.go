package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/mindscope/backend/internal/config"
	"github.com/zhouzirui/mindscope/backend/internal/docstore"
	"github.com/zhouzirui/mindscope/backend/internal/docstore/memstore"
	"github.com/zhouzirui/mindscope/backend/internal/docstore/sqlitestore"
	"github.com/zhouzirui/mindscope/backend/internal/gateway"
	"github.com/zhouzirui/mindscope/backend/internal/handler"
	"github.com/zhouzirui/mindscope/backend/internal/inference"
	"github.com/zhouzirui/mindscope/backend/internal/logging"
	"github.com/zhouzirui/mindscope/backend/internal/screen"
	"github.com/zhouzirui/mindscope/backend/internal/server"
	"github.com/zhouzirui/mindscope/backend/internal/service/auth"
	"github.com/zhouzirui/mindscope/backend/internal/storage"
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

	var db *sql.DB
	if cfg.Store.Driver == "sqlite" || cfg.Auth.Driver == "sqlite" {
		db, err = storage.OpenDB(cfg.Store.Path)
		if err != nil {
			logger.Fatalw("failed to open database", "path", cfg.Store.Path, "error", err)
		}
		defer db.Close()
	}

	rules := screen.OwnerRules()

	var store docstore.Store
	switch cfg.Store.Driver {
	case "sqlite":
		store = sqlitestore.New(db, rules)
	default:
		store = memstore.New(memstore.WithRules(rules))
		logger.Warnw("using in-memory document store, records are lost on restart")
	}
	defer store.Close()

	var repo auth.Repository
	switch cfg.Auth.Driver {
	case "sqlite":
		repo = auth.NewSQLiteRepository(db)
	default:
		repo = auth.NewMemoryRepository()
		logger.Warnw("using in-memory user repository, accounts are lost on restart")
	}

	provider, err := auth.NewService(repo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatalw("failed to initialize identity provider", "error", err)
	}

	client := inference.NewClient(cfg.Inference.BaseURL, cfg.Inference.Timeout)
	logger.Infow("inference backend configured", "baseURL", cfg.Inference.BaseURL, "timeout", cfg.Inference.Timeout)

	router := handler.NewGatewayRouter(gateway.Options{
		Store:     store,
		Rules:     rules,
		Provider:  provider,
		Inference: client,
	})

	addr, err := cfg.Server.Addr()
	if err != nil {
		logger.Fatalw("invalid server address", "error", err)
	}

	if err := server.Run(ctx, "MindScope gateway", addr, router); err != nil {
		logger.Fatalw("server error", "error", err)
	}
}
