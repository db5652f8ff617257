package server

import (
	stderrors "errors"
	"log/slog"
	"net"

	grpc3 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name health checks can ask about, "" covers the whole server.
const ServiceName = "chat-relay"

// HealthServer exposes grpc.health.v1 for orchestrators and load balancers.
type HealthServer struct {
	log    *slog.Logger
	server *grpc.Server
	health *health.Server
}

func NewHealthServer(log *slog.Logger) *HealthServer {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(log),
		))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)

	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &HealthServer{log: log, server: s, health: h}
}

// Serve blocks until Stop is called.
func (s *HealthServer) Serve(listener net.Listener) error {
	s.log.Info("Starting gRPC health server", "address", listener.Addr().String())
	if err := s.server.Serve(listener); err != nil && !stderrors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Drain reports NOT_SERVING so that health checks stop routing traffic here.
func (s *HealthServer) Drain() {
	s.health.Shutdown()
}

func (s *HealthServer) Stop() {
	s.Drain()
	s.server.GracefulStop()
}
