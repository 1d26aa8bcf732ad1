package database

import (
	"context"
	"fmt"
	"time"

	"chat_sync_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry build a kafka writer and check the brokers are reachable
func NewKafkaWriterWithRetry(ctx context.Context, k KafkaConnection) (*kafka.Writer, error) {
	if len(k.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	var err error
	attempts := retryCount(k.RetryCount)
	for attempt := 1; attempt <= attempts; attempt++ {
		var conn *kafka.Conn
		conn, err = kafka.DialContext(ctx, "tcp", k.Brokers[0])
		if err == nil {
			_ = conn.Close()
			return &kafka.Writer{
				Addr:                   kafka.TCP(k.Brokers...),
				Topic:                  k.Topic,
				Balancer:               &kafka.Hash{},
				RequiredAcks:           kafka.RequireOne,
				AllowAutoTopicCreation: true,
				BatchTimeout:           50 * time.Millisecond,
			}, nil
		}

		logger.Log.Warn("kafka dial failed, retrying...",
			zap.Strings("brokers", k.Brokers), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < attempts {
			time.Sleep(k.RetryInterval * time.Second)
		}
	}

	return nil, fmt.Errorf("kafka writer after %d attempts: %w", attempts, err)
}
