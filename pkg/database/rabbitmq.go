package database

import (
	"fmt"
	"time"

	"chat_sync_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RabbitRepo definition rabbit repo
type RabbitRepo interface {
	GetRabbit() *amqp.Channel
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type rabbitRepo struct {
	channel *amqp.Channel
}

// NewRabbitRepository create a RabbitRepository
func NewRabbitRepository(ch *amqp.Channel) RabbitRepo {
	return &rabbitRepo{channel: ch}
}

// ConnectRabbitMQWithRetry dial rabbitmq with retry
func ConnectRabbitMQWithRetry(d Connection) (*amqp.Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	attempts := retryCount(d.RetryCount)
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err = amqp.Dial(d.ConnectStr)
		if err == nil {
			return conn, nil
		}

		logger.Log.Warn("rabbitmq dial failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < attempts {
			time.Sleep(d.RetryInterval * time.Second)
		}
	}

	return nil, fmt.Errorf("rabbitmq after %d attempts: %w", attempts, err)
}

// GetRabbitMQChannelWithRetry open a channel on conn with retry
func GetRabbitMQChannelWithRetry(conn *amqp.Connection, maxRetries int, baseDelay time.Duration) (*amqp.Channel, error) {
	var (
		ch  *amqp.Channel
		err error
	)
	attempts := retryCount(maxRetries)
	for attempt := 1; attempt <= attempts; attempt++ {
		ch, err = conn.Channel()
		if err == nil {
			return ch, nil
		}

		logger.Log.Warn("rabbitmq channel failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < attempts {
			time.Sleep(baseDelay * time.Second)
		}
	}

	return nil, fmt.Errorf("rabbitmq channel after %d attempts: %w", attempts, err)
}

// DeclareQueue durable queue
func DeclareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(name, true, false, false, false, nil)
	return err
}

func (r *rabbitRepo) GetRabbit() *amqp.Channel {
	return r.channel
}

func (r *rabbitRepo) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return r.channel.Publish(exchange, key, mandatory, immediate, msg)
}
