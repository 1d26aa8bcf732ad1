package database

import (
	"fmt"
	"time"

	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// NewPGConnection open postgres through gorm with retry
func NewPGConnection(d Connection) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	attempts := retryCount(d.RetryCount)
	for i := 1; i <= attempts; i++ {
		db, err = gorm.Open(postgres.Open(d.ConnectStr), &gorm.Config{
			Logger:         gorm_logger.Default.LogMode(gorm_logger.Warn),
			TranslateError: true,
		})
		if err == nil {
			return db, nil
		}
		logger.Log.Warn("Failed to open gorm postgres, retrying...", zap.Int("attempt", i), zap.Error(err))
		if i < attempts {
			time.Sleep(d.RetryInterval * time.Second)
		}
	}
	return nil, fmt.Errorf("open gorm postgres: %w", err)
}
