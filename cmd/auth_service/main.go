package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_sync_service/internal/user/app"
	"chat_sync_service/internal/user/domain"
	"chat_sync_service/internal/user/repository"
	"chat_sync_service/internal/user/router"
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
	logger.Log = logger.Initialize(config.EnvConfig.AuthService, config.EnvConfig.AuthServiceLogPath)
	cfg := config.LoadConfig[config.Auth](config.EnvConfig.AuthService, config.EnvConfig.AuthServiceYAMLPath)
	cfg.ApplyDefaults()
	if cfg.JWT.Secret == "" {
		logger.Log.Fatal("jwt.secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. postgres, users table
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

	userRepo := repository.NewUserRepository(pool)
	if err := userRepo.EnsureSchema(ctx); err != nil {
		logger.Log.Fatal("ensure users schema", zap.Error(err))
	}

	// 2. redis, login sessions
	masterName, sentinels := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, masterName, sentinels, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	sessionRepo := database.NewRedisRepository[domain.UserSession](redisClient, "session:")

	issuer := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	usecase := app.NewUserUseCase(userRepo, cfg.SessionTTL, sessionRepo, issuer)

	// 3. fiber
	r := fiber.New(fiber.Config{DisableStartupMessage: config.IsProduction()})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.AuthServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// login and register are brute-force targets
	limiter := middlewares.NewIPRateLimiter(1, 5)
	router.RegisterRoutes(r, token.NewVerifier(cfg.JWT.Secret), limiter, app.NewUserHandler(usecase))

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(10 * time.Minute)
			case <-ctx.Done():
				if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
					logger.Log.Warn("fiber shutdown", zap.Error(err))
				}
				return
			}
		}
	}()

	logger.Log.Info("auth service listening", zap.String("port", cfg.Port))
	if err := r.Listen(":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
	logger.Log.Info("auth service stopped")
}
