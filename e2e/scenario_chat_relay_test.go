package e2e

import (
	"context"
	"fmt"
	"nolmessage/domain"
	"nolmessage/domain/event"
	"nolmessage/infrastructure/grpc/relay"
	"nolmessage/infrastructure/wire"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

type testChatRelaySuite struct {
	BaseGrpcSuite
}

func TestChatRelaySuite(t *testing.T) {
	suite.Run(t, &testChatRelaySuite{})
}

func (s *testChatRelaySuite) open(ctx context.Context, client relay.ChatRelayClient) relay.SessionClient {
	stream, err := client.Session(ctx)
	s.Require().NoError(err)
	return stream
}

func (s *testChatRelaySuite) emit(stream relay.SessionClient, name event.Name, data any) {
	frame, err := wire.NewFrameStruct(name, data)
	s.Require().NoError(err)
	s.Require().NoError(stream.Send(frame))
}

func (s *testChatRelaySuite) expect(stream relay.SessionClient, name event.Name) *structpb.Value {
	frame, err := stream.Recv()
	s.Require().NoError(err)
	s.Require().Equal(string(name), frame.Fields["event"].GetStringValue())
	return frame.Fields["data"]
}

func (s *testChatRelaySuite) TestHealth() {
	s.WithHealth("Relay reports serving", func(ctx context.Context, client healthpb.HealthClient) {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: relay.ServiceName})
		s.Require().NoError(err)
		s.Require().Equal(healthpb.HealthCheckResponse_SERVING, resp.Status)
	})
}

func (s *testChatRelaySuite) TestFullChatFlow() {
	chatID := "E2E-" + uuid.NewString()[:8]

	s.WithRelay("Join, post, history and capacity", func(ctx context.Context, client relay.ChatRelayClient) {
		alice := s.open(ctx, client)
		bob := s.open(ctx, client)

		// --- STEP 1: FIRST JOIN GETS AN EMPTY HISTORY ---
		s.Run("Step 1: Empty history on first join", func() {
			s.emit(alice, event.JoinChat, domain.JoinChatCommand{Username: "Alice", ChatID: chatID})
			history := s.expect(alice, event.LoadHistory)
			s.Require().Empty(history.GetListValue().GetValues())
		})

		// --- STEP 2: BROADCAST REACHES EVERY MEMBER ---
		s.Run("Step 2: Admin message is broadcast", func() {
			s.emit(bob, event.JoinChat, domain.JoinChatCommand{Username: "Bob", ChatID: chatID})
			s.expect(bob, event.LoadHistory)

			s.emit(alice, event.SendMessage, domain.SendMessageCommand{Username: "FLOWNOL", Text: "welcome", ChatID: chatID})
			for _, stream := range []relay.SessionClient{alice, bob} {
				message := s.expect(stream, event.NewMessage).GetStructValue().GetFields()
				s.Require().Equal("flownol", message["user"].GetStringValue())
				s.Require().Equal("admin-gradient", message["style"].GetStringValue())
				s.Require().NotEmpty(message["timestamp"].GetStringValue())
			}
		})

		// --- STEP 3: LATE JOINER SEES THE LAST MESSAGES ONLY ---
		s.Run("Step 3: History is capped", func() {
			for i := 0; i < s.Config.MaxMessages; i++ {
				s.emit(bob, event.SendMessage, domain.SendMessageCommand{Username: "bob", Text: fmt.Sprintf("msg %d", i), ChatID: chatID})
			}
			for i := 0; i < s.Config.MaxMessages; i++ {
				s.expect(alice, event.NewMessage)
				s.expect(bob, event.NewMessage)
			}

			carol := s.open(ctx, client)
			s.emit(carol, event.JoinChat, domain.JoinChatCommand{Username: "carol", ChatID: chatID})
			values := s.expect(carol, event.LoadHistory).GetListValue().GetValues()
			s.Require().Len(values, s.Config.MaxMessages)
			s.Require().Equal("msg 0", values[0].GetStructValue().GetFields()["text"].GetStringValue())
		})
	})
}

func (s *testChatRelaySuite) TestRoomCapacity() {
	chatID := "cap-" + uuid.NewString()[:8]

	s.WithRelay("Fill a room then free a slot", func(ctx context.Context, client relay.ChatRelayClient) {
		members := make([]relay.SessionClient, 0, s.Config.MaxUsersPerChat)
		for i := 0; i < s.Config.MaxUsersPerChat; i++ {
			stream := s.open(ctx, client)
			s.emit(stream, event.JoinChat, domain.JoinChatCommand{Username: fmt.Sprintf("user%d", i), ChatID: chatID})
			s.expect(stream, event.LoadHistory)
			members = append(members, stream)
		}

		late := s.open(ctx, client)
		s.emit(late, event.JoinChat, domain.JoinChatCommand{Username: "late", ChatID: chatID})
		text := s.expect(late, event.ErrorMessage).GetStringValue()
		s.Require().Equal(fmt.Sprintf("Chat is full (Max %d people).", s.Config.MaxUsersPerChat), text)

		// The first member leaves, its slot is released asynchronously
		s.Require().NoError(members[0].CloseSend())
		s.Require().Eventually(func() bool {
			frame, err := wire.NewFrameStruct(event.JoinChat, domain.JoinChatCommand{Username: "late", ChatID: chatID})
			if err != nil || late.Send(frame) != nil {
				return false
			}
			frame, err = late.Recv()
			if err != nil {
				return false
			}
			return frame.Fields["event"].GetStringValue() == string(event.LoadHistory)
		}, 5*time.Second, 50*time.Millisecond)
	})
}
