package database

import (
	"context"
	"fmt"
	"net"

	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer grpc server exposing grpc.health.v1
type HealthServer struct {
	Server *grpc.Server
	Health *health.Server
}

// NewHealthServer create grpc server with the health service registered, status NOT_SERVING
func NewHealthServer() *HealthServer {
	s := grpc.NewServer()
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, h)
	return &HealthServer{Server: s, Health: h}
}

// SetServing switch overall status
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.Health.SetServingStatus("", status)
}

// Serve blocks until the listener closes
func (h *HealthServer) Serve(lis net.Listener) error {
	logger.Log.Info("grpc health server listening", zap.String("addr", lis.Addr().String()))
	return h.Server.Serve(lis)
}

// Stop graceful stop
func (h *HealthServer) Stop() {
	h.Health.Shutdown()
	h.Server.GracefulStop()
}

// CheckGRPCHealth call grpc.health.v1 Check on addr
func CheckGRPCHealth(ctx context.Context, addr string) (bool, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return false, fmt.Errorf("grpc client %s: %w", addr, err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
