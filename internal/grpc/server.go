package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the storefront as a
// whole. The empty name reports the same status.
const ServiceName = "nexmart.storefront"

// Pinger is a dependency the storefront cannot serve without.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthServer exposes grpc.health.v1 and keeps the status in sync with the
// registered dependencies.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	deps     map[string]Pinger
	interval time.Duration
	timeout  time.Duration
}

func NewHealthServer(deps map[string]Pinger, interval time.Duration) *HealthServer {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	return &HealthServer{
		server:   grpcServer,
		health:   healthServer,
		deps:     deps,
		interval: interval,
		timeout:  2 * time.Second,
	}
}

// Check pings every dependency once and publishes the result. It returns
// true when all of them answered.
func (s *HealthServer) Check(ctx context.Context) bool {
	ok := true
	for name, dep := range s.deps {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := dep.Ping(pctx)
		cancel()
		if err != nil {
			slog.WarnContext(ctx, "dependency unhealthy", slog.String("dependency", name), slog.Any("error", err))
			ok = false
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return ok
}

// Watch re-runs Check every interval until ctx is done.
func (s *HealthServer) Watch(ctx context.Context) {
	s.Check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Stop marks the server as not serving so load balancers drain it, then
// stops gracefully.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
