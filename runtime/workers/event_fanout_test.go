package workers

import (
	"context"
	"log/slog"
	"nolmessage/contract"
	"nolmessage/domain"
	"nolmessage/domain/event"
	"nolmessage/errors"
	"nolmessage/mocks"
	"nolmessage/observability"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanoutWorker_Fanout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink1 := mocks.NewMockEventSink(ctrl)
	mockSink2 := mocks.NewMockEventSink(ctrl)
	monitoring := observability.NewMonitoringManager(log)

	fanoutWorker := NewEventFanout(log, mockRegistry, nil, monitoring, time.Second)

	evt := event.MessagePosted{Room: "lobby", Message: domain.Message{User: "a", Text: "hi"}}
	targets := []domain.ConnectionID{"conn-1", "conn-2"}

	// Given two connections are resolvable
	mockRegistry.EXPECT().SinksFor(targets).
		Return([]contract.EventSink{mockSink1, mockSink2}).Times(1)
	// Then both receive the event
	mockSink1.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	mockSink2.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	// When the delivery is handled by worker
	fanoutWorker.Fanout(context.Background(), contract.Delivery{Targets: targets, Event: evt})

	req.Zero(monitoring.GetLatest().DeliveriesFailed)
}

func TestEventFanoutWorker_Failing_Sink_Does_Not_Block_Others(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	slowSink := mocks.NewMockEventSink(ctrl)
	fullSink := mocks.NewMockEventSink(ctrl)
	okSink := mocks.NewMockEventSink(ctrl)
	monitoring := observability.NewMonitoringManager(log)

	sinkTimeout := 20 * time.Millisecond
	fanoutWorker := NewEventFanout(log, mockRegistry, nil, monitoring, sinkTimeout)

	mockRegistry.EXPECT().SinksFor(gomock.Any()).
		Return([]contract.EventSink{slowSink, fullSink, okSink}).Times(1)
	slowSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			<-ctx.Done()     // Waiting for timeout to trigger cancellation
			return ctx.Err() // Sending back "context deadline exceeded"
		}).Times(1)
	fullSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(errors.ErrSinkFull).Times(1)
	okSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	start := time.Now()
	fanoutWorker.Fanout(context.Background(), contract.Delivery{
		Targets: []domain.ConnectionID{"slow", "full", "ok"},
		Event:   event.ErrorRaised{Room: "lobby", Text: "oops"},
	})

	req.Less(time.Since(start), time.Second)
	req.Equal(uint64(2), monitoring.GetLatest().DeliveriesFailed)
}

func TestEventFanoutWorker_Run_Drains_Queue(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)
	monitoring := observability.NewMonitoringManager(log)

	deliveries := make(chan contract.Delivery, 2)
	fanoutWorker := NewEventFanout(log, mockRegistry, deliveries, monitoring, time.Second)

	first := event.HistoryLoaded{Room: "lobby"}
	second := event.MessagePosted{Room: "lobby"}
	var received []event.DomainEvent
	done := make(chan struct{})

	mockRegistry.EXPECT().SinksFor(gomock.Any()).Return([]contract.EventSink{mockSink}).Times(2)
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			received = append(received, evt)
			if len(received) == 2 {
				close(done)
			}
			return nil
		}).Times(2)

	deliveries <- contract.Delivery{Targets: []domain.ConnectionID{"conn-1"}, Event: first}
	deliveries <- contract.Delivery{Targets: []domain.ConnectionID{"conn-1"}, Event: second}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error)
	go func() { stopped <- fanoutWorker.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Fanout did not drain the queue at time")
	}
	cancel()
	req.NoError(<-stopped)

	// Then events kept their order
	req.Equal([]event.DomainEvent{first, second}, received)
}
