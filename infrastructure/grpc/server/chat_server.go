package server

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"nolmessage/domain"
	"nolmessage/domain/event"
	"nolmessage/errors"
	"nolmessage/infrastructure/grpc/relay"
	"nolmessage/infrastructure/wire"
	"nolmessage/observability"
	"nolmessage/services"
	"nolmessage/sink"

	"github.com/google/uuid"
)

var _ relay.ChatRelayServer = (*ChatServer)(nil)

type ChatServer struct {
	log                  *slog.Logger
	chatService          services.IChatService
	monitoring           *observability.MonitoringManager
	connectionBufferSize int
}

func NewChatServer(log *slog.Logger, chatService services.IChatService,
	monitoring *observability.MonitoringManager, connectionBufferSize int) *ChatServer {
	return &ChatServer{
		log:                  log,
		chatService:          chatService,
		monitoring:           monitoring,
		connectionBufferSize: connectionBufferSize,
	}
}

// Session is one relay connection. Client frames are read on a separate
// goroutine while this one drains the connection sink into the stream.
// It returns when the client half-closes, sends disconnecting, or the
// stream breaks. The reading goroutine leaves the rooms once it has applied
// its last frame, so a join in flight cannot outlive the disconnect.
func (s *ChatServer) Session(stream relay.SessionServer) error {
	ctx := stream.Context()
	connID := domain.ConnectionID(uuid.NewString())
	connectionSink := sink.NewConnectionSink(s.connectionBufferSize)

	s.chatService.Connect(connID, connectionSink)
	s.monitoring.ConnectionOpened()

	recvErr := make(chan error, 1)
	go func() {
		err := s.receive(ctx, stream, connID)
		s.chatService.Disconnecting(context.Background(), connID)
		connectionSink.Close()
		s.monitoring.ConnectionClosed()
		s.log.Debug("Relay session closed", "conn_id", connID)
		recvErr <- err
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-recvErr:
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			return errors.MapToGRPCError(err)
		case e := <-connectionSink.Events():
			frame, err := wire.EncodeStruct(e)
			if err != nil {
				s.log.Error("Failed to encode event", "conn_id", connID, "event", e.EventName(), "error", err)
				continue
			}
			if err := stream.Send(frame); err != nil {
				s.log.Warn("Failed to push event to stream", "conn_id", connID, "error", err)
				return err
			}
		}
	}
}

// receive applies client frames until the stream ends. Undecodable frames
// are logged and skipped.
func (s *ChatServer) receive(ctx context.Context, stream relay.SessionServer, connID domain.ConnectionID) error {
	for {
		frame, err := stream.Recv()
		if err != nil {
			return err
		}
		in, err := wire.DecodeStruct(frame)
		if err != nil {
			s.log.Warn("Ignoring client frame", "conn_id", connID, "error", err)
			continue
		}
		if in.Name == event.Disconnecting {
			return io.EOF
		}
		in.Apply(ctx, s.chatService, connID)
	}
}
