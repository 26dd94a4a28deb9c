package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCServiceName is the service name registered with the health server.
const GRPCServiceName = "termsheet.v1.Validator"

type grpcHealth struct {
	server *grpc.Server
	health *health.Server
}

func newGRPCHealth() *grpcHealth {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(GRPCServiceName, healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(gs)
	return &grpcHealth{server: gs, health: hs}
}

// stop flips every service to NOT_SERVING, then drains.
func (g *grpcHealth) stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
