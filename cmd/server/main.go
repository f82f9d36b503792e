package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"factflow/internal/cache"
	"factflow/internal/checker"
	"factflow/internal/clients"
	"factflow/internal/config"
	"factflow/internal/handlers"
	"factflow/internal/kafka"
	"factflow/internal/logger"
	"factflow/internal/middleware"
	"factflow/internal/models"
	"factflow/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Setup panic recovery
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": logger.GetStackTrace(0),
			}).Fatal("Application panicked")
		}
	}()

	logger.Log.Info("Starting FactFlow API server")

	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Log.WithField("log_level", cfg.LogLevel).Info("Configuration loaded")

	// Connect to database
	logger.Log.WithField("database_url", maskDatabaseURL(cfg.DatabaseURL)).Info("Connecting to database")
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "database_connect",
		})
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to get database SQL instance")
	}
	if err := sqlDB.Ping(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to ping database")
	}
	logger.Log.Info("Database connected and pingable")

	logger.Log.Info("Running database migrations")
	if err := models.AutoMigrate(db); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate database")
	}

	// Result cache is optional; disabled when REDIS_URL is unset
	resultCache, err := cache.NewResultCache(cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to Redis")
	}
	if resultCache != nil {
		defer resultCache.Close()
		logger.Log.Info("Result cache enabled")
	}

	// Kafka for async check jobs
	kafkaService := kafka.NewService(kafka.Config{
		BootstrapServers: cfg.KafkaBootstrapServers,
		Topic:            cfg.KafkaTopicChecks,
	})
	defer func() {
		if err := kafkaService.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close Kafka service")
		}
	}()
	logger.Log.WithField("topic", cfg.KafkaTopicChecks).Info("Kafka service initialized")

	// External clients, constructed once and shared across requests
	openaiClient := clients.NewOpenAIClient(cfg)
	tavilyClient := clients.NewTavilyClient(cfg)
	factChecker := checker.NewChecker(cfg, openaiClient, tavilyClient)

	checkService := services.NewCheckService(db, cfg, factChecker, resultCache)
	jobService := services.NewJobService(db, kafkaService, checkService)

	checkHandler := handlers.NewCheckHandler(checkService, cfg)
	resultHandler := handlers.NewResultHandler(checkService)
	jobHandler := handlers.NewJobHandler(jobService)

	router := setupRouter(cfg, checkHandler, resultHandler, jobHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // verification calls out to slow AI backends
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Log.WithField("port", cfg.ServerPort).Info("Starting FactFlow server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Log.Info("Shutdown signal received, starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Log.Info("Server gracefully stopped")
}

func setupRouter(cfg *config.Config, checkHandler *handlers.CheckHandler, resultHandler *handlers.ResultHandler, jobHandler *handlers.JobHandler) *gin.Engine {
	if cfg.LogLevel == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           5 * time.Minute,
	}))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "factflow-api",
			"timestamp": time.Now().UTC(),
		})
	})

	api := router.Group("/api")
	api.Use(middleware.JWTAuth([]byte(cfg.JWTAccessSecret)))
	{
		check := api.Group("/check")
		{
			check.POST("/text", checkHandler.CheckText)
			check.POST("/image", checkHandler.CheckImage)
			check.POST("/document", checkHandler.CheckDocument)
			check.POST("/url", checkHandler.CheckURL)
			check.POST("/async", jobHandler.CreateCheckJob)
		}

		api.GET("/jobs/:job_id/status", jobHandler.GetJobStatus)

		results := api.Group("/results")
		{
			results.GET("", resultHandler.ListResults)
			results.DELETE("/:id", resultHandler.DeleteResult)
		}
	}

	return router
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(dbURL string) string {
	if len(dbURL) > 20 {
		return dbURL[:10] + "***masked***" + dbURL[len(dbURL)-10:]
	}
	return "***masked***"
}
