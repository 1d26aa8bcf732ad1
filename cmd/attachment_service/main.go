package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_sync_service/internal/attachment/app"
	"chat_sync_service/internal/attachment/repository"
	"chat_sync_service/internal/attachment/router"
	"chat_sync_service/pkg/config"
	"chat_sync_service/pkg/database"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/middlewares"
	"chat_sync_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.AttachmentService, config.EnvConfig.AttachmentServiceLogPath)
	cfg := config.LoadConfig[config.Attachment](config.EnvConfig.AttachmentService, config.EnvConfig.AttachmentServiceYAMLPath)
	cfg.ApplyDefaults()
	if cfg.JWT.Secret == "" {
		logger.Log.Fatal("jwt.secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. postgres through gorm, attachment records
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	db, err := database.NewPGConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.PostgreSQL.Host, cfg.PostgreSQL.Port)),
			zap.Error(err),
		)
	}

	attachmentRepo := repository.NewAttachmentRepo(db)
	if err := attachmentRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("attachments table migration failed", zap.Error(err))
	}

	// 2. minio
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:   cfg.MinIO.Endpoint,
		User:       cfg.MinIO.User,
		Password:   cfg.MinIO.Password,
		BucketName: cfg.MinIO.Bucket,
		UseSSL:     cfg.MinIO.UseSSL,

		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to minio after retries",
			zap.String("endpoint", cfg.MinIO.Endpoint),
			zap.Error(err),
		)
	}

	// 3. rabbitmq, one channel to publish and one to consume
	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    cfg.RabbitMQ.URL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("rabbitmq connect", zap.Error(err))
	}
	defer conn.Close()

	publishChannel, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
	if err != nil {
		logger.Log.Fatal("rabbitmq publish channel", zap.Error(err))
	}
	defer publishChannel.Close()
	if err := database.DeclareQueue(publishChannel, cfg.RabbitMQ.Queue); err != nil {
		logger.Log.Fatal("queue declare failed", zap.String("queue", cfg.RabbitMQ.Queue), zap.Error(err))
	}

	consumeChannel, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
	if err != nil {
		logger.Log.Fatal("rabbitmq consume channel", zap.Error(err))
	}
	defer consumeChannel.Close()
	if err := consumeChannel.Qos(1, 0, false); err != nil {
		logger.Log.Fatal("rabbitmq qos", zap.Error(err))
	}

	usecase := app.NewAttachmentUseCase(minioClient, attachmentRepo, database.NewRabbitRepository(publishChannel),
		cfg.RabbitMQ.Queue, cfg.PresignTTL, cfg.MaxSize)

	// 4. thumbnail worker
	renderer := app.NewThumbnailRenderer(os.Getenv("FFMPEG_PATH"), os.TempDir())
	consumer := app.NewConsumer(consumeChannel, minioClient, attachmentRepo, renderer, cfg.RabbitMQ.Queue)
	go func() {
		if err := consumer.StartConsumer(ctx); err != nil {
			logger.Log.Error("thumbnail consumer", zap.Error(err))
		}
	}()

	if n, err := usecase.RequeuePending(ctx); err != nil {
		logger.Log.Warn("requeue pending thumbnails", zap.Error(err))
	} else if n > 0 {
		logger.Log.Info("requeued pending thumbnails", zap.Int("count", n))
	}

	// 5. fiber, body limit leaves room for the multipart envelope
	r := fiber.New(fiber.Config{
		BodyLimit:             int(cfg.MaxSize) + 1<<20,
		DisableStartupMessage: config.IsProduction(),
	})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.AttachmentServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	limiter := middlewares.NewIPRateLimiter(5, 10)
	router.RegisterRoutes(r, token.NewVerifier(cfg.JWT.Secret), limiter, app.NewAttachmentHandler(usecase))

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(10 * time.Minute)
			case <-ctx.Done():
				if err := r.ShutdownWithTimeout(30 * time.Second); err != nil {
					logger.Log.Warn("fiber shutdown", zap.Error(err))
				}
				return
			}
		}
	}()

	logger.Log.Info("attachment service listening", zap.String("port", cfg.Port))
	if err := r.Listen(":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
	logger.Log.Info("attachment service stopped")
}
