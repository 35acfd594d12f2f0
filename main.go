package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/agrideliver/server/internal/agent/graph"
	"github.com/agrideliver/server/internal/agent/model"
	"github.com/agrideliver/server/internal/agent/repo"
	"github.com/agrideliver/server/internal/core"
	"github.com/agrideliver/server/internal/server"
	logx "github.com/agrideliver/server/pkg/logger"
	pkgmongo "github.com/agrideliver/server/pkg/mongo"
	pkgredis "github.com/agrideliver/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Infrastructure
	Mongo pkgmongo.Config
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Classifier   model.ClassifierModelConfig
	Response     model.ResponseModelConfig
	Prompt       model.ResponsePromptConfig
	Conversation model.ConversationConfig
	Catalog      model.CatalogConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})
	logx.Info().Str("environment", cfg.Environment).Msg("Starting AgriDeliver chatbot server")

	mongoClient, db, err := cfg.Mongo.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	chatModels, err := graph.NewChatModels(ctx, graph.ChatModelConfig{
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		ClassifierCfg: &cfg.Classifier,
		ResponseCfg:   &cfg.Response,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create chat models")
	}

	catalog := repo.NewMongoCatalogRepository(db)
	sessions := repo.NewMongoSessionRepository(db)
	locks := repo.NewRedisSessionLocker(rdb, cfg.Conversation)

	engine := graph.NewEngine(graph.EngineConfig{
		Classifier:    graph.NewClassifier(chatModels.Classifier, chatModels.ClassifierModelName),
		Catalog:       catalog,
		Responder:     chatModels.Response,
		ResponderName: chatModels.ResponseModelName,
		Prompt:        cfg.Prompt,
		CatalogLimits: cfg.Catalog,
		Conversation:  cfg.Conversation,
	})
	orchestrator := graph.NewOrchestrator(engine, sessions, locks, cfg.Conversation)

	app := fiber.New(fiber.Config{AppName: "agrideliver-chatbot"})
	app.Use(recover.New())
	app.Use(cors.New())

	server.RegisterRoutes(app, server.NewChatbotHandler(orchestrator, sessions))

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			logx.Fatal().Err(err).Msg("HTTP server stopped")
		}
	}()
	logx.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")

	<-ctx.Done()
	logx.Info().Msg("Shutting down")
	if err := app.Shutdown(); err != nil {
		logx.Error().Err(err).Msg("Shutdown failed")
	}
}
