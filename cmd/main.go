package main

import (
	"fmt"
	"os"

	"github.com/VonteruManoj/GenMan/internal/cache"
	"github.com/VonteruManoj/GenMan/internal/chunker"
	"github.com/VonteruManoj/GenMan/internal/clients/configsvc"
	"github.com/VonteruManoj/GenMan/internal/clients/connectorsvc"
	"github.com/VonteruManoj/GenMan/internal/clients/lime"
	"github.com/VonteruManoj/GenMan/internal/clients/openai"
	"github.com/VonteruManoj/GenMan/internal/db"
	"github.com/VonteruManoj/GenMan/internal/handlers"
	"github.com/VonteruManoj/GenMan/internal/logger"
	"github.com/VonteruManoj/GenMan/internal/repos/search"
	"github.com/VonteruManoj/GenMan/internal/server"
	"github.com/VonteruManoj/GenMan/internal/services"
	"github.com/VonteruManoj/GenMan/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	appEnv := utils.GetEnv("APP_ENV", "local", log)
	port := utils.GetEnv("PORT", "8080", log)
	threshold := utils.GetEnvAsFloat("SEMANTIC_SEARCH_THRESHOLD", 0.5, log)
	chunkMaxLength := utils.GetEnvAsInt("CHUNKER_MAX_LENGTH", 1000, log)
	chunkStrategy := utils.GetEnv("CHUNKER_STRATEGY", "sentence", log)
	chunkConcatType := chunker.ConcatType(utils.GetEnv("CHUNKER_CONCAT_TYPE", "prefix", log))

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Cache
	redisCache, err := cache.NewRedisCache(log)
	if err != nil {
		log.Warn("Redis init failed, running without cache", "error", err)
		redisCache = nil
	}

	// Repos
	log.Info("Setting up Repos from main...")
	searchRepo := search.NewRepo(thePG, log, threshold)
	analyticsRepo := search.NewAnalyticsRepo(thePG, log)

	// Clients
	log.Info("Setting up Clients from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	configSvcClient, err := configsvc.NewClient(log, redisCache)
	if err != nil {
		log.Error("Could not init ConfigSvcClient", "error", err)
		os.Exit(1)
	}
	connectorSvcClient, err := connectorsvc.NewClient(log, redisCache)
	if err != nil {
		log.Error("Could not init ConnectorSvcClient", "error", err)
		os.Exit(1)
	}
	limeClient, err := lime.NewClient(log)
	if err != nil {
		log.Error("Could not init LimeClient", "error", err)
		os.Exit(1)
	}

	// Chunker
	var ch chunker.Chunker
	if chunkStrategy == "character" {
		ch = chunker.NewCharacterChunker(chunkMaxLength, chunkConcatType)
	} else {
		ch = chunker.NewSentenceChunker(chunkMaxLength, chunkConcatType)
	}

	// Services
	log.Info("Setting up Services from main...")
	searchService := services.NewSemanticSearchService(
		log, openaiClient, searchRepo, analyticsRepo,
		connectorSvcClient, configSvcClient, limeClient,
	)
	summarizeService := services.NewSummarizeAnswerService(
		log, openaiClient, openaiClient, searchRepo,
		connectorSvcClient, configSvcClient, appEnv,
	)
	ingestionService := services.NewIngestionService(log, openaiClient, ch, searchRepo)

	// Handlers
	log.Info("Setting up Handlers from main...")
	searchHandler := handlers.NewSemanticSearchHandler(log, searchService)
	summarizeHandler := handlers.NewSummarizeHandler(log, summarizeService)
	ingestionHandler := handlers.NewIngestionHandler(log, ingestionService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		SearchHandler:    searchHandler,
		SummarizeHandler: summarizeHandler,
		IngestionHandler: ingestionHandler,
	})

	log.Info("Starting server", "port", port, "env", appEnv)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
