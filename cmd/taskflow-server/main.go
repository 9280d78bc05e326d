package main

import (
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"taskflow-backend/internal/agent"
	"taskflow-backend/internal/auth"
	"taskflow-backend/internal/config"
	"taskflow-backend/internal/db"
	"taskflow-backend/internal/notify"
	"taskflow-backend/internal/server"
	"taskflow-backend/internal/store"
	"taskflow-backend/internal/tools"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	registry := notify.NewRegistry()

	var (
		users   store.Users
		conv    store.Conversations
		toolset tools.Toolset
	)
	if cfg.DatabaseURL != "" {
		database, err := db.New(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close()
		if err := database.RunMigrations("./migrations"); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		users = store.NewPostgresUsers(database)
		conv = store.NewPostgresConversations(database)
		toolset = tools.NewPostgresToolset(database, registry)
		logger.Info("database storage configured")
	} else {
		users = store.NewMemoryUsers()
		conv = store.NewMemoryConversations()
		toolset = tools.NewMemoryToolset(registry)
		logger.Warn("DB_URL not set, using in-memory storage; data is lost on restart")
	}

	agentOpts := []agent.Option{}
	if cfg.IntentLLMEnabled && cfg.OpenAIAPIKey != "" {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		fallback, err := agent.LoadLLMClassifier(cfg.IntentPromptFile, client, cfg.Model, logger)
		if err != nil {
			logger.Fatal("failed to load intent prompt", zap.Error(err))
		}
		agentOpts = append(agentOpts, agent.WithFallback(fallback))
		logger.Info("llm intent fallback enabled", zap.String("model", cfg.Model))
	}
	agentSvc := agent.NewService(toolset, conv, logger, agentOpts...)

	s := server.NewServer(cfg, logger, server.Deps{
		Auth:     auth.NewManager(cfg.JWTSecret, cfg.TokenTTL),
		Users:    users,
		Tools:    toolset,
		Agent:    agentSvc,
		Registry: registry,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("taskflow server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
