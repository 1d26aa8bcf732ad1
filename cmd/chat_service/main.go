package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "chat_sync_service/cmd/chat_service/docs" // swagger docs
	"chat_sync_service/internal/chat/app"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/internal/chat/router"
	"chat_sync_service/pkg/config"
	"chat_sync_service/pkg/database"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/middlewares"
	testtool "chat_sync_service/pkg/test_tool"
	"chat_sync_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	cfg.ApplyDefaults()
	if cfg.JWT.Secret == "" {
		logger.Log.Fatal("jwt.secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. mongo, chats and messages
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal("Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MongoSQL.Host, cfg.MongoSQL.Port)),
			zap.Error(err),
		)
	}
	defer mongo.Close(context.Background())

	chatRepo := repository.NewMongoChatRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	if err := chatRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("ensure chat indexes", zap.Error(err))
	}
	if err := msgRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("ensure message indexes", zap.Error(err))
	}

	// 2. postgres, read-only user directory owned by the auth service
	var userRepo repository.UserDirectoryRepository
	if cfg.PostgreSQL.Host != "" {
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
		pool, err := database.NewDatabaseConnection(database.Connection{
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
		defer pool.Close()
		userRepo = repository.NewUserDirectoryRepository(pool)
	}

	// 3. redis relay between chat nodes
	masterName, sentinels := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, masterName, sentinels, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. kafka chat events, optional
	var (
		eventRepo repository.EventRepository
		brokers   []string
	)
	for _, b := range cfg.Kafka.Brokers {
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(ctx, database.KafkaConnection{
			Brokers:       brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("kafka writer", zap.Error(err))
		}
		eventRepo = repository.NewKafkaEventRepository(writer)
	} else {
		logger.Log.Warn("kafka brokers not configured, chat events are discarded")
	}
	events := app.NewEventStream(eventRepo, cfg.Session.EventQueue)
	events.Start(ctx)

	// 5. wiring
	nodeID := uuid.NewString()
	verifier := token.NewVerifier(cfg.JWT.Secret)
	authz := app.NewMembershipAuthorizer(chatRepo)
	chats := app.NewChatUseCase(chatRepo, msgRepo, userRepo, authz, cfg.Message)
	registry := app.NewConnectionRegistry()
	broadcaster := app.NewRoomBroadcaster(registry, repository.NewRedisRoomRelay(redisClient), nodeID)
	if err := broadcaster.StartRelay(ctx); err != nil {
		logger.Log.Fatal("subscribe room relay", zap.Error(err))
	}
	coordinator := app.NewSessionCoordinator(verifier, chats, authz, registry, broadcaster, events, cfg.Session.TokenExpiryPolicy)

	// 6. grpc health
	health := database.NewHealthServer()
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("Failed to listen Port(%s): ", cfg.GRPCPort), zap.Error(err))
		}
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Log.Warn("grpc health server stopped", zap.Error(err))
			}
		}()
	}

	testtool.StartPprof()

	// 7. fiber
	r := fiber.New(fiber.Config{DisableStartupMessage: config.IsProduction()})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	limiter := middlewares.NewIPRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(10 * time.Minute)
			case <-ctx.Done():
				return
			}
		}
	}()

	router.RegisterRoutes(r, verifier, limiter,
		app.NewChatHandler(coordinator),
		app.NewChatWebsocketHandler(coordinator, cfg.Session),
	)

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down chat service")
		health.SetServing(false)
		coordinator.Shutdown()
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Warn("fiber shutdown", zap.Error(err))
		}
	}()

	health.SetServing(true)
	logger.Log.Info("chat service listening", zap.String("port", cfg.Port), zap.String("node", nodeID))
	if err := r.Listen(":" + cfg.Port); err != nil {
		logger.Log.Error("Server failed to start", zap.Error(err))
	}

	events.Close()
	health.Stop()
	logger.Log.Info("chat service stopped")
}
