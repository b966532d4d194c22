package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/analysis"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/extract"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/llm"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/ocr"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/pipeline"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/server"
)

const healthProbeInterval = 30 * time.Second

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("analyzer starting",
		"service", constants.ServiceName,
		"version", constants.ServiceVersion,
		"http_addr", cfg.Server.Addr(),
		"grpc_addr", cfg.Server.GRPCAddr,
		"ollama", cfg.Ollama.BaseURL,
		"model", cfg.Ollama.Model,
	)

	// OCR is initialized once; on failure the service still runs and
	// image/scanned-page extraction fails per file.
	runner := ocr.ExecRunner(logger)
	recognizer, err := ocr.New(ctx, ocr.ConfigFrom(cfg.OCR), logger, ocr.WithRunner(runner))
	if err != nil {
		logger.Error("ocr init failed", "engine", cfg.OCR.Engine, "error", err)
		logger.Warn("ocr features unavailable: image and scanned PDF processing will fail")
		recognizer = ocr.Disabled(err)
	}
	rasterizer := ocr.NewPdftoppm(cfg.OCR.Pdftoppm, ocr.DefaultDPI, runner, logger)

	dispatcher, err := extract.NewDispatcher(recognizer, rasterizer, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}

	llmClient := llm.NewClient(llm.ConfigFrom(cfg.Ollama), logger)
	logStartupHealth(ctx, llmClient, logger)

	controller := pipeline.NewController(
		pipeline.OptionsFrom(cfg.Processing),
		dispatcher,
		llmClient,
		analysis.NewRatioEngine(logger),
		logger,
	)

	handler := server.NewHandler(controller, llmClient, logger)
	e := server.NewRouter(server.OptionsFrom(cfg), handler, logger)
	e.Server.ReadHeaderTimeout = 30 * time.Second

	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		probe := server.NewHealthProbe(llmClient, logger)
		probe.Check(ctx)
		go probe.Run(ctx, healthProbeInterval)

		grpcServer = server.NewGRPCServer(probe)
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
				os.Exit(1)
			}
		}()
	}

	logger.Info("http listening", "addr", cfg.Server.Addr())
	go func() {
		if err := e.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// in-flight analyses can take minutes; give them the LLM timeout to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ollama.Timeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	logger.Info("stopped")
}

func logStartupHealth(ctx context.Context, hc llm.HealthChecker, logger *slog.Logger) {
	st := hc.Health(ctx)
	switch {
	case !st.OllamaReachable:
		logger.Warn("ollama is not reachable", "error", st.Error)
	case !st.ModelAvailable:
		logger.Warn("model not found", "model", st.ConfiguredModel, "available", st.AvailableModels)
	default:
		logger.Info("ollama ready", "model", st.ConfiguredModel)
	}
}
