package observability

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/frankwiersma/speech-to-jira/internal/observability/logging"
	"github.com/frankwiersma/speech-to-jira/internal/observability/metrics"
)

// UnaryServerInterceptor records every unary call in m and logs it.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		done := observeCall(m, info.FullMethod)
		resp, err := handler(ctx, req)
		done(err)
		return resp, err
	}
}

// StreamServerInterceptor records every stream in m and logs it.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		done := observeCall(m, info.FullMethod)
		err := handler(srv, ss)
		done(err)
		return err
	}
}

func observeCall(m *metrics.Metrics, method string) func(error) {
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start)
		code := status.Code(err)
		m.RecordGRPCCall(method, code.String(), elapsed.Seconds())

		logger := logging.WithComponent("grpc")
		var ev *zerolog.Event
		switch {
		case code != codes.OK:
			ev = logger.Warn().Err(err)
		case strings.HasPrefix(method, "/grpc.health."):
			// Probes arrive every few seconds.
			ev = logger.Debug()
		default:
			ev = logger.Info()
		}
		ev.Str("method", method).
			Str("code", code.String()).
			Dur("duration", elapsed).
			Msg("gRPC call")
	}
}
