package repository

import (
	"context"
	"encoding/json"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RelayChannel redis channel shared by every chat node
const RelayChannel = "chat:rooms"

// RoomRelay cross node room fan-out
type RoomRelay interface {
	Publish(ctx context.Context, env domain.RelayEnvelope) error
	Subscribe(ctx context.Context, handler func(env domain.RelayEnvelope)) error
}

// RedisRoomRelay redis pub/sub relay
type RedisRoomRelay struct {
	client  *redis.Client
	channel string
}

// NewRedisRoomRelay create RedisRoomRelay on RelayChannel
func NewRedisRoomRelay(client *redis.Client) *RedisRoomRelay {
	return &RedisRoomRelay{client: client, channel: RelayChannel}
}

// Publish serialize env to the relay channel
func (r *RedisRoomRelay) Publish(ctx context.Context, env domain.RelayEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Subscribe deliver every envelope to handler until ctx is done
func (r *RedisRoomRelay) Subscribe(ctx context.Context, handler func(env domain.RelayEnvelope)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				var env domain.RelayEnvelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					logger.Log.Warn("relay: bad envelope", zap.Error(err))
					continue
				}
				handler(env)
			case <-ctx.Done():
				logger.Log.Info("relay subscription closed", zap.String("channel", r.channel))
				return
			}
		}
	}()
	return nil
}
