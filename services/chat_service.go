package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"nolmessage/contract"
	"nolmessage/domain"
	"nolmessage/domain/event"
	"nolmessage/errors"
	"nolmessage/observability"
	"time"
)

// IChatService is the boundary every transport talks to.
type IChatService interface {
	Connect(conn domain.ConnectionID, sink contract.EventSink)
	JoinChat(ctx context.Context, conn domain.ConnectionID, cmd domain.JoinChatCommand)
	SendMessage(ctx context.Context, conn domain.ConnectionID, cmd domain.SendMessageCommand)
	Disconnecting(ctx context.Context, conn domain.ConnectionID)
}

var _ IChatService = (*ChatService)(nil)

// ChatService turns inbound transport events into room operations and
// addresses the resulting outbound events.
type ChatService struct {
	log             *slog.Logger
	store           contract.IRoomStore
	registry        contract.IRegistry
	dispatcher      contract.Dispatcher
	monitoring      *observability.MonitoringManager
	sanitizer       domain.Sanitizer
	classifier      domain.AdminClassifier
	roomFullText    string
	timestampLayout string
	now             func() time.Time
}

func NewChatService(
	log *slog.Logger,
	store contract.IRoomStore,
	registry contract.IRegistry,
	dispatcher contract.Dispatcher,
	monitoring *observability.MonitoringManager,
	limits domain.Limits,
	admins []string,
	timestampLayout string,
) *ChatService {
	sanitizer := domain.NewSanitizer(limits)
	return &ChatService{
		log:             log,
		store:           store,
		registry:        registry,
		dispatcher:      dispatcher,
		monitoring:      monitoring,
		sanitizer:       sanitizer,
		classifier:      domain.NewAdminClassifier(sanitizer, admins),
		roomFullText:    fmt.Sprintf("Chat is full (Max %d people).", limits.MaxMembers),
		timestampLayout: timestampLayout,
		now:             time.Now,
	}
}

func (s *ChatService) Connect(conn domain.ConnectionID, sink contract.EventSink) {
	s.registry.Register(conn, sink)
	s.log.Debug("A user connected", "conn_id", conn)
}

// JoinChat admits the connection into the room, or tells it the room is full.
// Either way only the requester is notified.
func (s *ChatService) JoinChat(ctx context.Context, conn domain.ConnectionID, cmd domain.JoinChatCommand) {
	user := s.sanitizer.User(cmd.Username)
	roomID := s.sanitizer.Room(cmd.ChatID)

	var err error
	s.store.WithRoom(roomID, func(room *domain.Room) {
		err = room.TryJoinFunc(conn, func(history []domain.Message) {
			s.registry.Track(conn, roomID)
			s.reply(ctx, conn, event.HistoryLoaded{Room: roomID, Messages: history})
		})
	})

	if stderrors.Is(err, errors.ErrRoomFull) {
		s.monitoring.IncrJoinRejected()
		s.log.Info("Join rejected, room is full", "conn_id", conn, "room_id", roomID, "user", user)
		s.reply(ctx, conn, event.ErrorRaised{Room: roomID, Text: s.roomFullText})
		return
	}

	s.monitoring.IncrJoinAdmitted()
	s.log.Info(fmt.Sprintf("%s joined %s", user, roomID), "conn_id", conn)
}

// SendMessage stores the message and broadcasts it to the current members.
// The sender does not need to be a member of the room.
func (s *ChatService) SendMessage(ctx context.Context, conn domain.ConnectionID, cmd domain.SendMessageCommand) {
	user := s.sanitizer.User(cmd.Username)
	roomID := s.sanitizer.Room(cmd.ChatID)
	message := domain.Message{
		User:      user,
		Text:      s.sanitizer.Text(cmd.Text),
		Style:     s.classifier.Classify(user),
		Timestamp: s.now().Format(s.timestampLayout),
	}

	s.store.WithRoom(roomID, func(room *domain.Room) {
		room.AppendFunc(message, func(members []domain.ConnectionID) {
			s.dispatcher.Deliver(ctx, contract.Delivery{
				Targets: members,
				Event:   event.MessagePosted{Room: roomID, Message: message},
			})
		})
	})
	s.monitoring.IncrMessagePosted()
}

// Disconnecting removes the connection from every room it was admitted to.
// Calling it more than once is harmless.
func (s *ChatService) Disconnecting(_ context.Context, conn domain.ConnectionID) {
	rooms := s.registry.Unregister(conn)
	for _, roomID := range rooms {
		if room, ok := s.store.Get(roomID); ok {
			room.Leave(conn)
		}
	}
	s.log.Debug("A user disconnected", "conn_id", conn, "rooms", len(rooms))
}

func (s *ChatService) reply(ctx context.Context, conn domain.ConnectionID, e event.DomainEvent) {
	s.dispatcher.Deliver(ctx, contract.Delivery{
		Targets: []domain.ConnectionID{conn},
		Event:   e,
	})
}
