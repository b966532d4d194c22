package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/llm"
)

// LLMHealthService is the gRPC health service name that follows the LLM backend.
// The empty service name always reports the process itself.
const LLMHealthService = constants.ServiceName + ".llm"

// HealthProbe keeps a grpc health server in sync with the LLM backend.
type HealthProbe struct {
	srv     *health.Server
	checker llm.HealthChecker
	logger  *slog.Logger
}

func NewHealthProbe(checker llm.HealthChecker, logger *slog.Logger) *HealthProbe {
	if logger == nil {
		logger = slog.Default()
	}
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	srv.SetServingStatus(LLMHealthService, healthpb.HealthCheckResponse_UNKNOWN)
	return &HealthProbe{srv: srv, checker: checker, logger: logger}
}

// Server returns the underlying health server.
func (p *HealthProbe) Server() *health.Server { return p.srv }

// Check probes the backend once and publishes the result.
func (p *HealthProbe) Check(ctx context.Context) llm.HealthStatus {
	st := p.checker.Health(ctx)
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if st.OllamaReachable && st.ModelAvailable {
		status = healthpb.HealthCheckResponse_SERVING
	}
	p.srv.SetServingStatus(LLMHealthService, status)
	p.logger.Debug("grpc.health.probe", "service", LLMHealthService, "status", status.String())
	return st
}

// Run re-probes every interval until ctx is done, then marks everything NOT_SERVING.
func (p *HealthProbe) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			p.srv.Shutdown()
			return
		case <-t.C:
			p.Check(ctx)
		}
	}
}

// NewGRPCServer registers the health service and reflection.
func NewGRPCServer(p *HealthProbe) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, p.Server())
	reflection.Register(s)
	return s
}
