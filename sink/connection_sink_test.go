package sink

import (
	"context"
	"nolmessage/domain"
	"nolmessage/domain/event"
	"nolmessage/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionSink_Consume_Buffers_In_Order(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(2)
	ctx := context.Background()

	history := event.HistoryLoaded{Room: "lobby"}
	posted := event.MessagePosted{Room: "lobby", Message: domain.Message{User: "a", Text: "hi"}}

	req.NoError(s.Consume(ctx, history))
	req.NoError(s.Consume(ctx, posted))

	req.Equal(history, <-s.Events())
	req.Equal(posted, <-s.Events())
}

func TestConnectionSink_Consume_Full_Buffer(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(1)
	ctx := context.Background()

	req.NoError(s.Consume(ctx, event.ErrorRaised{Text: "one"}))
	req.ErrorIs(s.Consume(ctx, event.ErrorRaised{Text: "two"}), errors.ErrSinkFull)
}

func TestConnectionSink_Consume_After_Close(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(1)

	s.Close()
	s.Close()

	req.ErrorIs(s.Consume(context.Background(), event.ErrorRaised{Text: "late"}), errors.ErrSinkClosed)
	select {
	case <-s.Done():
	default:
		req.Fail("done channel should be closed")
	}
}
