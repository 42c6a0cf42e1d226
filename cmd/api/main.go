package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/aidetect"
	"github.com/jasper-ai/backend/internal/api/handlers"
	"github.com/jasper-ai/backend/internal/cache/redis"
	"github.com/jasper-ai/backend/internal/corpus"
	"github.com/jasper-ai/backend/internal/inference"
	"github.com/jasper-ai/backend/internal/metrics"
	"github.com/jasper-ai/backend/internal/middleware/ratelimit"
	"github.com/jasper-ai/backend/internal/middleware/security"
	"github.com/jasper-ai/backend/internal/middleware/validation"
	"github.com/jasper-ai/backend/internal/plagiarism"
	"github.com/jasper-ai/backend/internal/storage/sqlite"
	"github.com/jasper-ai/backend/internal/vector"
	"github.com/jasper-ai/backend/internal/vector/flat"
	"github.com/jasper-ai/backend/internal/vector/milvus"
	"github.com/jasper-ai/backend/pkg/config"
	appLogger "github.com/jasper-ai/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Jasper detection API server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLMin)*time.Minute,
		)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer cache.Close()
	}

	inferenceClient := inference.NewClient(
		cfg.Inference.BaseURL,
		cfg.Inference.APIKey,
		cfg.Inference.EmbeddingModel,
		cfg.Inference.EmbeddingDim,
		cfg.Inference.PerplexityModel,
		cfg.Inference.MaxTextChars,
		cfg.Inference.TimeoutSec,
	)

	// The detectors are unusable without a reachable embedding model, so a
	// broken inference endpoint fails startup rather than the first request.
	verifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := inferenceClient.Verify(verifyCtx); err != nil {
		cancel()
		appLogger.Fatal("Inference endpoint verification failed", zap.Error(err))
	}
	cancel()

	var classifier inference.Classifier
	if cfg.Classifier.Enabled {
		classifier = inference.NewHTTPClassifier(cfg.Classifier.Endpoint, cfg.Classifier.TimeoutSec)
		appLogger.Info("AI classifier enabled", zap.String("endpoint", cfg.Classifier.Endpoint))
	}

	var index vector.Index
	switch cfg.Index.Backend {
	case "milvus":
		index, err = milvus.Open(
			context.Background(),
			cfg.Index.Milvus.Endpoint,
			cfg.Index.Milvus.CollectionName,
			cfg.Inference.EmbeddingDim,
		)
		if err != nil {
			appLogger.Fatal("Failed to open Milvus index", zap.Error(err))
		}
	case "flat":
		var loaded bool
		index, loaded, err = flat.Open(
			filepath.Join(cfg.Corpus.Dir, "index.bin"),
			cfg.Inference.EmbeddingDim,
		)
		if err != nil {
			appLogger.Fatal("Failed to open flat index", zap.Error(err))
		}
		if loaded {
			appLogger.Info("Flat index loaded from disk", zap.Int64("vectors", index.Count()))
		}
	default:
		appLogger.Fatal("Unknown index backend", zap.String("backend", cfg.Index.Backend))
	}

	store, err := corpus.NewStore(cfg.Corpus.Dir, index, inferenceClient, nil)
	if err != nil {
		appLogger.Fatal("Failed to open corpus store", zap.Error(err))
	}

	stats := store.Stats()
	metrics.CorpusDocuments.Set(float64(stats.DocumentCount))
	metrics.CorpusVectors.Set(float64(stats.VectorCount))

	plagiarismDetector := plagiarism.NewDetector(store, inferenceClient, nil)
	aiDetector := aidetect.NewDetector(inferenceClient, classifier, nil)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	detectHandler := handlers.NewDetectHandler(plagiarismDetector, aiDetector, sqliteClient, cache)
	corpusHandler := handlers.NewCorpusHandler(store, cache)
	uploadHandler := handlers.NewUploadHandler()
	wsHandler := handlers.NewWebSocketHandler(plagiarismDetector, aiDetector)

	api := app.Group("/api/v1")

	api.Post("/detect/plagiarism", detectHandler.HandlePlagiarism)
	api.Post("/detect/ai", detectHandler.HandleAI)
	api.Post("/detect/hybrid", detectHandler.HandleHybrid)
	api.Get("/detect/history", detectHandler.HandleHistory)

	api.Get("/corpus/stats", corpusHandler.HandleStats)
	api.Post("/documents", corpusHandler.HandleAddDocument)
	api.Post("/upload/extract", uploadHandler.HandleExtract)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ready",
			"corpus_size":   store.DocumentCount(),
			"index_backend": cfg.Index.Backend,
			"classifier":    cfg.Classifier.Enabled,
			"cache":         cfg.Redis.Enabled,
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/detect", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()

	if err := store.Persist(context.Background()); err != nil {
		appLogger.Error("Failed to persist corpus on shutdown", zap.Error(err))
	}

	appLogger.Info("Server stopped")
}
