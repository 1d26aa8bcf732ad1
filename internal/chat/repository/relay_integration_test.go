package repository

import (
	"context"
	"testing"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/database"
	testtool "chat_sync_service/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisRoomRelay_PublishSubscribe(t *testing.T) {
	if testing.Short() || !testtool.DockerAvailable() {
		t.Skip("docker unavailable")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		t.Skipf("redis container: %v", err)
	}
	defer func() { _ = container.Terminate(context.Background()) }()

	client, err := database.NewRedisClient(host+":"+port, "", nil, 0)
	require.NoError(t, err)
	defer client.Close()

	relay := NewRedisRoomRelay(client)
	got := make(chan domain.RelayEnvelope, 1)
	require.NoError(t, relay.Subscribe(ctx, func(env domain.RelayEnvelope) { got <- env }))

	require.NoError(t, relay.Publish(ctx, domain.RelayEnvelope{
		Origin: "node-a",
		ChatID: "chat-1",
		Frame:  domain.WSResponse{Event: domain.EventNewMessage, ChatID: "chat-1"},
	}))

	select {
	case env := <-got:
		assert.Equal(t, "node-a", env.Origin)
		assert.Equal(t, "chat-1", env.ChatID)
		assert.Equal(t, domain.EventNewMessage, env.Frame.Event)
	case <-time.After(5 * time.Second):
		t.Fatal("relay envelope not received")
	}
}
