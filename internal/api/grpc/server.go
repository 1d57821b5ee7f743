// Package grpcapi exposes the standard gRPC health and reflection services
// for the pipeline so orchestrators can probe it over gRPC.
package grpcapi

import (
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/frankwiersma/speech-to-jira/internal/observability"
	"github.com/frankwiersma/speech-to-jira/internal/observability/metrics"
)

// PipelineService is the health service name reported for the pipeline.
const PipelineService = "speechtojira.Pipeline"

// Server wraps a gRPC server with health reporting.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates a gRPC server with health and reflection registered.
// Both the overall status and PipelineService start as SERVING.
func NewServer(m *metrics.Metrics, opts ...grpc.ServerOption) *Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(m)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(m)),
	)
	server := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(server)

	s := &Server{grpc: server, health: healthServer}
	s.SetServing(true)
	return s
}

// SetServing flips the reported health status.
func (s *Server) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(PipelineService, st)
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server started")
	return s.grpc.Serve(lis)
}

// Stop reports NOT_SERVING, then stops gracefully.
func (s *Server) Stop() {
	log.Info().Msg("shutting down gRPC server")
	s.SetServing(false)
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
