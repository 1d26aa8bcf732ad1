package repository

import (
	"context"
	"encoding/json"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// EventRepository chat event stream
type EventRepository interface {
	Publish(ctx context.Context, events ...domain.ChatEvent) error
	Close() error
}

// KafkaWriter subset of *kafka.Writer
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaEventRepository struct {
	writer  KafkaWriter
	breaker *gobreaker.CircuitBreaker
}

// NewKafkaEventRepository events keyed by chat id, guarded by a circuit breaker
func NewKafkaEventRepository(writer KafkaWriter) EventRepository {
	st := gobreaker.Settings{
		Name:        "kafka-chat-events",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Log.Warn("circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &kafkaEventRepository{writer: writer, breaker: gobreaker.NewCircuitBreaker(st)}
}

func (r *kafkaEventRepository) Publish(ctx context.Context, events ...domain.ChatEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.ChatID),
			Value: data,
			Time:  e.At,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(e.Type)},
			},
		})
	}

	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.writer.WriteMessages(ctx, msgs...)
	})
	return err
}

func (r *kafkaEventRepository) Close() error {
	return r.writer.Close()
}
