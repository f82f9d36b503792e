package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"factflow/internal/cache"
	"factflow/internal/checker"
	"factflow/internal/clients"
	"factflow/internal/config"
	"factflow/internal/kafka"
	"factflow/internal/logger"
	"factflow/internal/models"
	"factflow/internal/services"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// CheckWorker consumes check job messages and runs the verification pipeline
type CheckWorker struct {
	db           *gorm.DB
	cfg          *config.Config
	kafkaService *kafka.Service
	jobService   services.JobServiceInterface
	running      bool
}

func NewCheckWorker(db *gorm.DB, cfg *config.Config, kafkaService *kafka.Service, resultCache *cache.ResultCache) *CheckWorker {
	openaiClient := clients.NewOpenAIClient(cfg)
	tavilyClient := clients.NewTavilyClient(cfg)
	factChecker := checker.NewChecker(cfg, openaiClient, tavilyClient)
	checkService := services.NewCheckService(db, cfg, factChecker, resultCache)

	return &CheckWorker{
		db:           db,
		cfg:          cfg,
		kafkaService: kafkaService,
		jobService:   services.NewJobService(db, kafkaService, checkService),
		running:      false,
	}
}

func (w *CheckWorker) processJob(ctx context.Context, message services.CheckJobMessage) (retErr error) {
	// Setup panic recovery for this job
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)

			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": string(buf[:n]),
			}).Error("Worker panic in job processing")

			retErr = fmt.Errorf("worker panicked: %v", r)
		}
	}()

	logger.Log.WithFields(map[string]interface{}{
		"job_id":     message.JobID,
		"input_type": message.InputType,
	}).Info("Worker picked up check job")

	startTime := time.Now()
	err := w.jobService.ProcessCheckJob(ctx, message)
	duration := time.Since(startTime)

	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"job_id":    message.JobID,
			"duration":  duration,
			"operation": "process_check_job",
		})
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"job_id":   message.JobID,
		"duration": duration,
	}).Info("Check job completed")
	return nil
}

func (w *CheckWorker) Run(ctx context.Context) error {
	logger.Log.Info("Starting check worker")

	w.running = true

	consumer, err := w.kafkaService.CreateConsumer("check-workers")
	if err != nil {
		return err
	}
	defer consumer.Close()

	logger.Log.Info("Worker ready to process check jobs")

	for w.running {
		select {
		case <-ctx.Done():
			logger.Log.Info("Context cancelled, stopping worker")
			return ctx.Err()
		default:
			message, err := consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.LogErrorWithStack(err, map[string]interface{}{
					"operation": "kafka_read_message",
				})
				continue
			}

			var jobMessage services.CheckJobMessage
			if err := json.Unmarshal(message.Value, &jobMessage); err != nil {
				logger.LogErrorWithStack(err, map[string]interface{}{
					"message_value": string(message.Value),
					"operation":     "parse_job_message",
				})
				continue
			}

			if err := w.processJob(ctx, jobMessage); err != nil {
				logger.LogErrorWithStack(err, map[string]interface{}{
					"job_id":    jobMessage.JobID,
					"operation": "process_job",
				})
			}
		}
	}

	return nil
}

func (w *CheckWorker) Stop() {
	logger.Log.Info("Stopping check worker")
	w.running = false
}

func main() {
	// Setup panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)

			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": string(buf[:n]),
			}).Fatal("Worker application panicked")
		}
	}()

	logger.Log.Info("Starting FactFlow check worker")

	cfg, err := config.Load()
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "config_load",
		})
		logger.Log.WithError(err).Fatal("Failed to load worker configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Log.WithField("log_level", cfg.LogLevel).Info("Worker configuration loaded")

	// Connect to database
	logger.Log.WithField("database_url", maskDatabaseURL(cfg.DatabaseURL)).Info("Worker connecting to database")
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation":    "database_connect",
			"database_url": maskDatabaseURL(cfg.DatabaseURL),
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
	logger.Log.Info("Worker database connected and pingable")

	if err := models.AutoMigrate(db); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate database")
	}

	resultCache, err := cache.NewResultCache(cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to Redis")
	}
	if resultCache != nil {
		defer resultCache.Close()
	}

	logger.Log.WithFields(map[string]interface{}{
		"kafka_servers": cfg.KafkaBootstrapServers,
		"topic":         cfg.KafkaTopicChecks,
	}).Info("Worker initializing Kafka service")
	kafkaService := kafka.NewService(kafka.Config{
		BootstrapServers: cfg.KafkaBootstrapServers,
		Topic:            cfg.KafkaTopicChecks,
	})
	defer func() {
		if err := kafkaService.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close worker Kafka service")
		}
	}()

	worker := NewCheckWorker(db, cfg, kafkaService, resultCache)

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Log.Info("Worker shutdown signal received")
		worker.Stop()
		cancel()
	}()

	logger.Log.Info("Check worker waiting for jobs")

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "worker_run",
		})
		logger.Log.WithError(err).Fatal("Worker failed")
	}

	logger.Log.Info("Check worker stopped gracefully")
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(dbURL string) string {
	if len(dbURL) > 20 {
		return dbURL[:10] + "***masked***" + dbURL[len(dbURL)-10:]
	}
	return "***masked***"
}
