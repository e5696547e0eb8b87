// Package wire encodes events into the frames shared by every transport:
// a JSON object {"event": <name>, "data": <payload>}.
package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"nolmessage/domain"
	"nolmessage/domain/event"
	"nolmessage/errors"
	"nolmessage/services"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type Frame struct {
	Event event.Name      `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is a decoded client event. Exactly one command is set for
// join-chat and send-message; none for disconnecting.
type Inbound struct {
	Name event.Name
	Join *domain.JoinChatCommand
	Send *domain.SendMessageCommand
}

// Encode turns an outbound event into a JSON frame.
func Encode(e event.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(e.Payload())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventName(), err)
	}
	return json.Marshal(Frame{Event: e.EventName(), Data: data})
}

// Decode parses a client frame. Missing fields decode as empty strings,
// which the domain accepts.
func Decode(raw []byte) (Inbound, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}

	in := Inbound{Name: frame.Event}
	switch frame.Event {
	case event.JoinChat:
		in.Join = &domain.JoinChatCommand{}
		if err := decodeData(frame.Data, in.Join); err != nil {
			return Inbound{}, err
		}
	case event.SendMessage:
		in.Send = &domain.SendMessageCommand{}
		if err := decodeData(frame.Data, in.Send); err != nil {
			return Inbound{}, err
		}
	case event.Disconnecting:
	default:
		return Inbound{}, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, frame.Event)
	}
	return in, nil
}

func decodeData(data json.RawMessage, target any) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: missing data", errors.ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	return nil
}

// EncodeStruct turns an outbound event into a protobuf Struct with the same
// shape as the JSON frame.
func EncodeStruct(e event.DomainEvent) (*structpb.Struct, error) {
	raw, err := Encode(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func DecodeStruct(s *structpb.Struct) (Inbound, error) {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	return Decode(raw)
}

// NewFrameStruct builds a client frame as a Struct.
func NewFrameStruct(name event.Name, data any) (*structpb.Struct, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"event": string(name),
		"data":  payload,
	})
}

// Apply hands a decoded event to the chat service.
func (in Inbound) Apply(ctx context.Context, service services.IChatService, conn domain.ConnectionID) {
	switch {
	case in.Join != nil:
		service.JoinChat(ctx, conn, *in.Join)
	case in.Send != nil:
		service.SendMessage(ctx, conn, *in.Send)
	case in.Name == event.Disconnecting:
		service.Disconnecting(ctx, conn)
	}
}
