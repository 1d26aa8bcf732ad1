package database

import (
	"context"
	"fmt"
	"time"

	"chat_sync_service/pkg/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// NewDatabaseConnection create a new postgresSQL connection pool
func NewDatabaseConnection(d Connection) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(d.ConnectStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	var pool *pgxpool.Pool
	attempts := retryCount(d.RetryCount)
	for i := 1; i <= attempts; i++ {
		pool, err = pgxpool.ConnectConfig(context.Background(), dbConfig)
		if err == nil {
			return pool, nil
		}
		logger.Log.Warn(
			"Failed to connect to postgreSQL database, retrying...",
			zap.Int("attempt", i),
			zap.String("host", dbConfig.ConnConfig.Host),
			zap.Error(err),
		)
		if i < attempts {
			time.Sleep(d.RetryInterval * time.Second)
		}
	}

	return nil, err
}
