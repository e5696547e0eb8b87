package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"nolmessage/infrastructure/grpc/relay"
	"nolmessage/infrastructure/grpc/server"
	"nolmessage/infrastructure/websocket"
	"nolmessage/internal"
	"nolmessage/observability"
	"nolmessage/runtime"
	"nolmessage/runtime/workers"
	"nolmessage/services"
	"nolmessage/ui"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpc3 "github.com/mama165/sdk-go/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal arrives, then shuts
// the transports down before the workers so no delivery is enqueued late.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Setup Supervision & Orchestration
	monitoring := observability.NewMonitoringManager(logger)
	store := runtime.NewRoomStore(logger, config.Limits())
	registry := runtime.NewRegistry()
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(
		logger, supervisor, registry, store, monitoring,
		config.BufferSize, config.SinkTimeout, config.MetricInterval, config.RoomIdleTTL,
	)
	chatService := services.NewChatService(
		logger, store, registry, orchestrator, monitoring,
		config.Limits(), config.AdminList(), config.TimestampLayout,
	)

	// 4. Start the Engine (Fanout, Telemetry, Janitor)
	orchestrator.Start(ctx)

	errChan := make(chan error, 2)

	// 5. HTTP: static client, websocket and debug endpoints
	wsServer := websocket.NewServer(logger, chatService, monitoring, config.ConnectionBufferSize)
	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer)
	internal.NewDebugServer(logger, store, monitoring).Register(mux)
	mux.Handle("/", ui.Handler())

	httpServer := &http.Server{
		Addr:              config.HTTPAddress(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 6. gRPC Server Setup
	var grpcServer *grpc.Server
	healthServer := health.NewServer()
	if config.GrpcPort > 0 {
		listener, err := net.Listen("tcp", config.GrpcAddress())
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.GrpcAddress(), err)
		}
		grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(logger)))
		relay.RegisterChatRelayServer(grpcServer, server.NewChatServer(logger, chatService, monitoring, config.ConnectionBufferSize))
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus(relay.ServiceName, healthpb.HealthCheckResponse_SERVING)

		go func() {
			logger.Info("Starting gRPC server", "address", config.GrpcAddress(), "at", time.Now().UTC())
			for serviceName := range grpcServer.GetServiceInfo() {
				logger.Debug("gRPC exposed services", "name", serviceName)
			}
			if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errChan <- fmt.Errorf("gRPC server error: %w", err)
			}
		}()
	}

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	wsServer.CloseAll()
	if grpcServer != nil {
		stopGrpc(grpcServer, shutdownTimeout)
	}
	orchestrator.Stop()
	logger.Info("Program stopped cleanly")

	return code, runErr
}

// stopGrpc waits for open sessions to end, then cuts them.
func stopGrpc(s *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.Stop()
	}
}
