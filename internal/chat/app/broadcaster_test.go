package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoomBroadcaster_DeliversToRoomOnly(t *testing.T) {
	logger.SetNewNop()
	registry := NewConnectionRegistry()
	inX1, inX2, inY := &fakeConn{}, &fakeConn{}, &fakeConn{}
	x1 := registry.Register("alice", inX1)
	x2 := registry.Register("bob", inX2)
	y := registry.Register("carol", inY)
	require.NoError(t, registry.JoinRoom(x1, "x"))
	require.NoError(t, registry.JoinRoom(x2, "x"))
	require.NoError(t, registry.JoinRoom(y, "y"))

	b := NewRoomBroadcaster(registry, nil, "node-1")
	report := b.Broadcast(context.Background(), "x", domain.WSResponse{Event: domain.EventUserTyping}, "")

	assert.Equal(t, 2, report.Delivered)
	assert.ElementsMatch(t, []string{"alice", "bob"}, report.UserIDs)
	require.Len(t, inX1.responses(), 1)
	assert.Equal(t, "x", inX1.responses()[0].ChatID)
	assert.Len(t, inX2.responses(), 1)
	assert.Empty(t, inY.responses())

	report = b.Broadcast(context.Background(), "x", domain.WSResponse{Event: domain.EventUserTyping}, x1)
	assert.Equal(t, 1, report.Delivered)
	assert.Len(t, inX1.responses(), 1)
	assert.True(t, report.ReachedOtherThan("alice"))
	assert.False(t, report.ReachedOtherThan("bob"))
}

func TestRoomBroadcaster_FailureDoesNotBlockOthers(t *testing.T) {
	logger.SetNewNop()
	registry := NewConnectionRegistry()
	broken, healthy := &fakeConn{fail: true}, &fakeConn{}
	brokenID := registry.Register("alice", broken)
	healthyID := registry.Register("bob", healthy)
	require.NoError(t, registry.JoinRoom(brokenID, "x"))
	require.NoError(t, registry.JoinRoom(healthyID, "x"))

	evicted := make(chan string, 1)
	b := NewRoomBroadcaster(registry, nil, "node-1")
	b.OnDeliveryFailure(func(connID string) { evicted <- connID })

	report := b.Broadcast(context.Background(), "x", domain.WSResponse{Event: domain.EventNewMessage}, "")
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, healthy.responses(), 1)

	select {
	case id := <-evicted:
		assert.Equal(t, brokenID, id)
	case <-time.After(time.Second):
		t.Fatal("broken connection was not reported")
	}
}

func TestRoomBroadcaster_Relay(t *testing.T) {
	logger.SetNewNop()
	registry := NewConnectionRegistry()
	local := &fakeConn{}
	id := registry.Register("alice", local)
	require.NoError(t, registry.JoinRoom(id, "x"))

	relay := new(MockRoomRelay)
	relay.On("Publish", mock.Anything, mock.MatchedBy(func(env domain.RelayEnvelope) bool {
		return env.Origin == "node-1" && env.ChatID == "x" && env.Frame.Event == domain.EventMessageRead
	})).Return(errors.New("redis down"))

	b := NewRoomBroadcaster(registry, relay, "node-1")
	report := b.Broadcast(context.Background(), "x", domain.WSResponse{Event: domain.EventMessageRead}, id)
	assert.Equal(t, 0, report.Delivered)
	relay.AssertExpectations(t)

	b.HandleRelay(domain.RelayEnvelope{Origin: "node-1", ChatID: "x", Frame: domain.WSResponse{Event: domain.EventNewMessage}})
	assert.Empty(t, local.responses())

	b.HandleRelay(domain.RelayEnvelope{Origin: "node-2", ChatID: "x", Frame: domain.WSResponse{Event: domain.EventNewMessage, ChatID: "x"}})
	require.Len(t, local.responses(), 1)
	assert.Equal(t, domain.EventNewMessage, local.responses()[0].Event)
}

func TestRoomBroadcaster_SendTo(t *testing.T) {
	logger.SetNewNop()
	registry := NewConnectionRegistry()
	conn := &fakeConn{}
	id := registry.Register("alice", conn)
	b := NewRoomBroadcaster(registry, nil, "node-1")

	require.NoError(t, b.SendTo(id, domain.WSResponse{Event: domain.EventAck}))
	assert.Len(t, conn.events(domain.EventAck), 1)
	assert.Error(t, b.SendTo("missing", domain.WSResponse{Event: domain.EventAck}))
}
