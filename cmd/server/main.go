package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"studenthousing/internal/app"
	"studenthousing/internal/config"
	"studenthousing/internal/handler"
	"studenthousing/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := app.NewLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("student housing assistant")

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage backend")
	}
	defer backend.Close()

	// Initialize OpenAI client
	openaiClient := service.NewOpenAIClient(&cfg.OpenAI, logger)
	if openaiClient.IsEnabled() {
		logger.Info().
			Str("api_base", cfg.OpenAI.APIBase).
			Str("chat_model", cfg.OpenAI.ChatModel).
			Str("embedding_model", cfg.OpenAI.EmbeddingModel).
			Int("embedding_dimensions", cfg.OpenAI.EmbeddingDimensions).
			Msg("OpenAI client initialized")
	} else {
		logger.Warn().Msg("OpenAI is disabled, set OPENAI_API_KEY to enable extraction, retrieval and narratives")
	}

	// Initialize services
	zones := service.NewZoneMap(cfg.Zones)
	filters := service.NewFilterBuilder(zones)
	extractor := service.NewCriteriaExtractor(openaiClient, zones, logger)
	retrieval := service.NewRetrievalEngine(openaiClient, backend.Index, filters, logger)
	assembler := service.NewResultAssembler(zones)
	policy := service.NewConversationPolicy(zones, service.DefaultKeywordSignals())
	ranker := service.NewRanker(
		cfg.Ranking.WeightSimilarity,
		cfg.Ranking.WeightPrice,
		cfg.Ranking.WeightAvailability,
	).WithZones(zones)
	composer := service.NewResponseComposer(openaiClient, logger)
	searchService := service.NewSearchService(extractor, retrieval, assembler, policy, ranker, composer, backend.SearchLog, logger)

	documents, apartments := app.Stores(cfg)
	indexer := service.NewIndexer(openaiClient, backend.Index, cfg.Store.ContactEmail, logger)
	adminService := service.NewAdminService(documents, apartments, indexer, logger)

	if cfg.VectorStore.Type == "memory" {
		if err := adminService.ReindexAll(); err != nil {
			logger.Error().Err(err).Msg("failed to start initial reindex")
		}
	}

	logger.Info().Str("vector_store", cfg.VectorStore.Type).Int("zones", len(cfg.Zones)).Msg("services initialized")

	// Initialize handlers
	searchHandler := handler.NewSearchHandler(searchService)
	feedbackHandler := handler.NewFeedbackHandler(searchService)
	adminHandler := handler.NewAdminHandler(adminService)
	chunkHandler := handler.NewChunkHandler(indexer)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.RequestLogger(logger))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	origins := splitList(cfg.Server.AllowedOrigins)
	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	corsConfig.ExposeHeaders = []string{handler.SearchIDHeader}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"service":      "student-housing-assistant",
			"vector_store": cfg.VectorStore.Type,
			"openai":       openaiClient.IsEnabled(),
			"version":      Version,
			"build_time":   BuildTime,
			"git_commit":   GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	apiV1.Use(handler.RequestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	{
		// Search endpoints
		apiV1.POST("/search", searchHandler.Search)
		apiV1.POST("/search/stream", searchHandler.SearchStream)

		// Feedback endpoint
		apiV1.POST("/feedback", feedbackHandler.Submit)
	}

	admin := apiV1.Group("/admin")
	{
		admin.GET("/status", adminHandler.Status)
		admin.POST("/reindex-all", adminHandler.ReindexAll)
		admin.POST("/chunks", chunkHandler.BatchIndex)

		admin.GET("/documents", adminHandler.ListDocuments)
		admin.POST("/documents", adminHandler.CreateDocument)
		admin.GET("/documents/search", adminHandler.SearchDocuments)
		admin.PUT("/documents/:id", adminHandler.UpdateDocument)
		admin.DELETE("/documents/:id", adminHandler.DeleteDocument)

		admin.GET("/apartments", adminHandler.ListApartments)
		admin.POST("/apartments", adminHandler.CreateApartment)
		admin.GET("/apartments/search", adminHandler.SearchApartments)
		admin.POST("/apartments/import", adminHandler.ImportApartments)
		admin.PUT("/apartments/:id", adminHandler.UpdateApartment)
		admin.DELETE("/apartments/:id", adminHandler.DeleteApartment)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	if err := adminService.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("reindex still running at shutdown")
	}

	logger.Info().Msg("server stopped")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
