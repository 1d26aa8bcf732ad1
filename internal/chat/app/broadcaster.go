package app

import (
	"context"
	"encoding/json"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	errprocess "chat_sync_service/pkg/err"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/metrics"

	"go.uber.org/zap"
)

// DeliveryReport outcome of one local fan-out
type DeliveryReport struct {
	Delivered int
	Failed    int
	UserIDs   []string
}

// ReachedOtherThan some connection of a user other than userID got the frame
func (r DeliveryReport) ReachedOtherThan(userID string) bool {
	for _, u := range r.UserIDs {
		if u != userID {
			return true
		}
	}
	return false
}

// RoomBroadcaster best effort fan-out to every connection of a room
type RoomBroadcaster struct {
	registry *ConnectionRegistry
	relay    repository.RoomRelay
	nodeID   string
	evict    func(connID string)
}

// NewRoomBroadcaster relay may be nil for a single node
func NewRoomBroadcaster(registry *ConnectionRegistry, relay repository.RoomRelay, nodeID string) *RoomBroadcaster {
	return &RoomBroadcaster{registry: registry, relay: relay, nodeID: nodeID}
}

// OnDeliveryFailure called asynchronously with the id of a connection that could not take a frame
func (b *RoomBroadcaster) OnDeliveryFailure(fn func(connID string)) {
	b.evict = fn
}

// Broadcast deliver frame to chatID locally except excludeConnID, then relay it to other nodes
func (b *RoomBroadcaster) Broadcast(ctx context.Context, chatID string, frame domain.WSResponse, excludeConnID string) DeliveryReport {
	frame.ChatID = chatID
	report := b.DeliverLocal(chatID, frame, excludeConnID)

	if b.relay != nil {
		env := domain.RelayEnvelope{Origin: b.nodeID, ChatID: chatID, Frame: frame}
		if err := b.relay.Publish(ctx, env); err != nil {
			logger.Log.Warn("relay publish failed", zap.String("chat_id", chatID), zap.Error(err))
		}
	}
	return report
}

// DeliverLocal fan-out to this node only
func (b *RoomBroadcaster) DeliverLocal(chatID string, frame domain.WSResponse, excludeConnID string) DeliveryReport {
	report := DeliveryReport{UserIDs: []string{}}
	data, err := json.Marshal(frame)
	if err != nil {
		logger.Log.Error("broadcast marshal", zap.String("event", string(frame.Event)), zap.Error(err))
		return report
	}

	seen := make(map[string]struct{})
	for _, rc := range b.registry.ConnectionsInRoom(chatID) {
		if rc.ConnID == excludeConnID {
			continue
		}
		if err := rc.Conn.Send(data); err != nil {
			report.Failed++
			b.deliveryFailed(rc, chatID, err)
			continue
		}
		report.Delivered++
		metrics.IncDelivery("ok")
		if _, ok := seen[rc.UserID]; !ok {
			seen[rc.UserID] = struct{}{}
			report.UserIDs = append(report.UserIDs, rc.UserID)
		}
	}
	return report
}

func (b *RoomBroadcaster) deliveryFailed(rc RoomConn, chatID string, err error) {
	if !errprocess.Is(err, errprocess.KindDelivery) {
		err = errprocess.Delivery(err, "send failed")
	}
	metrics.IncDelivery("failed")
	logger.Log.Warn("broadcast delivery failed",
		zap.String("chat_id", chatID),
		zap.String("conn_id", rc.ConnID),
		zap.String("user_id", rc.UserID),
		zap.Error(err),
	)
	if b.evict != nil {
		go b.evict(rc.ConnID)
	}
}

// SendTo direct frame to one connection
func (b *RoomBroadcaster) SendTo(connID string, frame domain.WSResponse) error {
	_, conn, ok := b.registry.Lookup(connID)
	if !ok {
		return errprocess.NotFound("connection not registered")
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return errprocess.Internal(err, "marshal frame")
	}
	return conn.Send(data)
}

// HandleRelay deliver an envelope published by another node
func (b *RoomBroadcaster) HandleRelay(env domain.RelayEnvelope) {
	if env.Origin == b.nodeID {
		return
	}
	b.DeliverLocal(env.ChatID, env.Frame, "")
}

// StartRelay subscribe to the relay until ctx is done
func (b *RoomBroadcaster) StartRelay(ctx context.Context) error {
	if b.relay == nil {
		return nil
	}
	return b.relay.Subscribe(ctx, b.HandleRelay)
}
