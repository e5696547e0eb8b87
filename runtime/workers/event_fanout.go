package workers

import (
	"context"
	"log/slog"
	"nolmessage/contract"
	"nolmessage/observability"
	"time"
)

var _ contract.Worker = (*EventFanout)(nil)

// EventFanout delivers each queued event to the sinks of its target connections.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries. A single EventFanout drains the queue, so two events
// addressed to the same connection reach its sink in enqueue order.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	deliveries  <-chan contract.Delivery
	monitoring  *observability.MonitoringManager
	sinkTimeout time.Duration
}

func NewEventFanout(
	log *slog.Logger,
	registry contract.IRegistry,
	deliveries <-chan contract.Delivery,
	monitoring *observability.MonitoringManager,
	sinkTimeout time.Duration,
) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		deliveries:  deliveries,
		monitoring:  monitoring,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case delivery, ok := <-w.deliveries:
			if !ok {
				w.log.Debug("Delivery channel is closed")
				return nil
			}
			w.Fanout(ctx, delivery)
		}
	}
}

// Fanout One sink for each target, each bounded by sinkTimeout
func (w *EventFanout) Fanout(ctx context.Context, delivery contract.Delivery) {
	sinks := w.registry.SinksFor(delivery.Targets)
	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		err := sink.Consume(sinkCtx, delivery.Event)
		cancel()
		if err != nil {
			w.monitoring.IncrDeliveryFailed()
			w.log.Debug("Event not delivered",
				"event", delivery.Event.EventName(),
				"room_id", delivery.Event.RoomID(),
				"error", err)
		}
	}
}
