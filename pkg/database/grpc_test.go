package database

import (
	"context"
	"net"
	"testing"
	"time"

	"chat_sync_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthServer(t *testing.T) {
	logger.SetNewNop()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hs := NewHealthServer()
	go func() { _ = hs.Serve(lis) }()
	defer hs.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serving, err := CheckGRPCHealth(ctx, lis.Addr().String())
	require.NoError(t, err)
	assert.False(t, serving)

	hs.SetServing(true)
	serving, err = CheckGRPCHealth(ctx, lis.Addr().String())
	require.NoError(t, err)
	assert.True(t, serving)
}
