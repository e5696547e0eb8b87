package event

import (
	"nolmessage/domain"
)

// Name is the wire name of an event, shared by every transport.
type Name string

const (
	JoinChat      Name = "join-chat"
	SendMessage   Name = "send-message"
	Disconnecting Name = "disconnecting"

	ErrorMessage Name = "error-message"
	LoadHistory  Name = "load-history"
	NewMessage   Name = "new-message"
)

// DomainEvent is an outbound event addressed to one or more connections.
type DomainEvent interface {
	EventName() Name
	RoomID() domain.RoomID
	// Payload is the value encoded in the "data" field of a frame.
	Payload() any
}

type ErrorRaised struct {
	Room domain.RoomID
	Text string
}

func (e ErrorRaised) EventName() Name { return ErrorMessage }
func (e ErrorRaised) RoomID() domain.RoomID { return e.Room }
func (e ErrorRaised) Payload() any { return e.Text }

type HistoryLoaded struct {
	Room     domain.RoomID
	Messages []domain.Message
}

func (e HistoryLoaded) EventName() Name { return LoadHistory }
func (e HistoryLoaded) RoomID() domain.RoomID { return e.Room }
func (e HistoryLoaded) Payload() any {
	if e.Messages == nil {
		return []domain.Message{}
	}
	return e.Messages
}

type MessagePosted struct {
	Room    domain.RoomID
	Message domain.Message
}

func (e MessagePosted) EventName() Name { return NewMessage }
func (e MessagePosted) RoomID() domain.RoomID { return e.Room }
func (e MessagePosted) Payload() any { return e.Message }
