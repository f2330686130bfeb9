// Package monitoring serves the liveness, readiness and metrics endpoints
// shared by both binaries.
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check reports whether a dependency is ready.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler answers /healthz unconditionally and /readyz once every
// check passes.
func HealthHandler(checks ...Check) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := runChecks(r.Context(), checks); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}

func runChecks(ctx context.Context, checks []Check) error {
	ctxPing, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	for _, c := range checks {
		if err := c.Ping(ctxPing); err != nil {
			return fmt.Errorf("%s not ready", c.Name)
		}
	}
	return nil
}

// StartHealthServer blocks serving HealthHandler on port until ctx is done.
func StartHealthServer(ctx context.Context, port int, logger *zerolog.Logger, checks ...Check) {
	serve(ctx, port, HealthHandler(checks...), "health", logger)
}

// StartMetricsServer blocks serving /metrics on port until ctx is done.
func StartMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, port, mux, "metrics", logger)
}

func serve(ctx context.Context, port int, h http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Int("port", port).Msgf("%s server listening", name)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}

// GRPCHealth mirrors the readiness checks into the standard gRPC health service.
type GRPCHealth struct {
	server *health.Server
	checks []Check
}

func NewGRPCHealth(checks ...Check) *GRPCHealth {
	return &GRPCHealth{server: health.NewServer(), checks: checks}
}

// Refresh re-runs the checks and publishes the overall status.
func (g *GRPCHealth) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := runChecks(ctx, g.checks); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.server.SetServingStatus("", status)
	return status
}

// Serve blocks serving the health service on port, refreshing every interval.
func (g *GRPCHealth) Serve(ctx context.Context, port int, interval time.Duration, logger *zerolog.Logger) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Error().Err(err).Msg("grpc health listen failed")
		return
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, g.server)

	go func() {
		g.Refresh(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				g.server.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				g.Refresh(ctx)
			}
		}
	}()

	logger.Info().Int("port", port).Msg("grpc health server listening")
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Error().Err(err).Msg("grpc health server error")
	}
}
