package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"nolmessage/domain"
	"nolmessage/infrastructure/grpc/relay"
	"nolmessage/infrastructure/grpc/server"
	"nolmessage/observability"
	"nolmessage/runtime"
	"nolmessage/runtime/workers"
	"nolmessage/services"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type BaseGrpcSuite struct {
	suite.Suite
	Config Config
	stop   func()
}

// SetupSuite loads the environment configuration and, without a target
// address, boots a relay in-process on a random port.
func (s *BaseGrpcSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.RelayGrpcAddr == "" {
		s.Config.RelayGrpcAddr, s.stop = s.startRelay()
	}
}

func (s *BaseGrpcSuite) TearDownSuite() {
	if s.stop != nil {
		s.stop()
	}
}

func (s *BaseGrpcSuite) startRelay() (string, func()) {
	log := logs.GetLoggerFromLevel(slog.LevelWarn)
	limits := domain.DefaultLimits()
	limits.MaxMembers = s.Config.MaxUsersPerChat
	limits.MaxHistory = s.Config.MaxMessages

	monitoring := observability.NewMonitoringManager(log)
	store := runtime.NewRoomStore(log, limits)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, 100*time.Millisecond),
		registry, store, monitoring, 1024, 100*time.Millisecond, time.Second, 0)
	orchestrator.Start(context.Background())
	chatService := services.NewChatService(log, store, registry, orchestrator, monitoring,
		limits, []string{"flownol", "pagekn"}, "3:04:05 PM")

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	grpcServer := grpc.NewServer()
	relay.RegisterChatRelayServer(grpcServer, server.NewChatServer(log, chatService, monitoring, 64))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(relay.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	go func() { _ = grpcServer.Serve(listener) }()

	return listener.Addr().String(), func() {
		grpcServer.Stop()
		orchestrator.Stop()
	}
}

// GrpcConn initializes a gRPC connection with logging, colors, and JSON debugging
func (s *BaseGrpcSuite) GrpcConn(t *testing.T, name string, addr string) *grpc.ClientConn {
	// 1. Print a colorized header for the connection step in logs
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	// 2. Setup JSON marshaler for debugging protobuf messages
	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	// 3. Create the client with interceptors for logging
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
		grpc.WithStreamInterceptor(func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
			stream, err := streamer(ctx, desc, cc, method, opts...)
			t.Logf("GRPC stream %s opened [%s]", method, status.Code(err))
			if err != nil || !s.Config.DebugJSON {
				return stream, err
			}
			return &loggingStream{ClientStream: stream, t: t, marshaler: marshaler}, nil
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+addr)
	return conn
}

// loggingStream dumps every frame crossing a client stream.
type loggingStream struct {
	grpc.ClientStream
	t         *testing.T
	marshaler protojson.MarshalOptions
}

func (l *loggingStream) SendMsg(m any) error {
	if msg, ok := m.(proto.Message); ok {
		l.t.Log("SEND:", l.marshaler.Format(msg))
	}
	return l.ClientStream.SendMsg(m)
}

func (l *loggingStream) RecvMsg(m any) error {
	err := l.ClientStream.RecvMsg(m)
	if msg, ok := m.(proto.Message); ok && err == nil {
		l.t.Log("RECV:", l.marshaler.Format(msg))
	}
	return err
}

// WithRelay provides a ChatRelay client within a contextual test step
func (s *BaseGrpcSuite) WithRelay(name string, fn func(ctx context.Context, client relay.ChatRelayClient)) {
	conn := s.GrpcConn(s.T(), name, s.Config.RelayGrpcAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fn(ctx, relay.NewChatRelayClient(conn))
}

// WithHealth provides a health client within a contextual test step
func (s *BaseGrpcSuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	conn := s.GrpcConn(s.T(), name, s.Config.RelayGrpcAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fn(ctx, healthpb.NewHealthClient(conn))
}
