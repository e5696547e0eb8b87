// Package runtime handles room state ownership, connection bookkeeping and
// event propagation. It orchestrates the system without containing domain rules.
package runtime

import (
	"context"
	"log/slog"
	"nolmessage/contract"
	"nolmessage/observability"
	"nolmessage/runtime/workers"
	"sync"
	"time"
)

var _ contract.Dispatcher = (*Orchestrator)(nil)

type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       contract.IRegistry
	store          contract.IRoomStore
	monitoring     *observability.MonitoringManager
	deliveries     chan contract.Delivery
	sinkTimeout    time.Duration
	metricInterval time.Duration
	roomIdleTTL    time.Duration
	cancel         context.CancelFunc
	done           chan struct{}
}

func NewOrchestrator(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	registry contract.IRegistry,
	store contract.IRoomStore,
	monitoring *observability.MonitoringManager,
	bufferSize int,
	sinkTimeout, metricInterval, roomIdleTTL time.Duration,
) *Orchestrator {
	return &Orchestrator{
		log:            log,
		supervisor:     supervisor,
		registry:       registry,
		store:          store,
		monitoring:     monitoring,
		deliveries:     make(chan contract.Delivery, bufferSize),
		sinkTimeout:    sinkTimeout,
		metricInterval: metricInterval,
		roomIdleTTL:    roomIdleTTL,
	}
}

// Deliver enqueues a delivery for the fanout worker without blocking.
// When the queue is full the delivery is dropped: broadcast is fire-and-forget.
// The caller's ctx does not cancel the enqueue: other members still get it.
func (o *Orchestrator) Deliver(_ context.Context, delivery contract.Delivery) {
	if len(delivery.Targets) == 0 {
		return
	}
	select {
	case o.deliveries <- delivery:
	default:
		o.monitoring.IncrDeliveryDropped()
		o.log.Warn("Delivery queue full, dropping event",
			"event", delivery.Event.EventName(),
			"room_id", delivery.Event.RoomID(),
			"targets", len(delivery.Targets))
	}
}

// Start registers the workers and runs the supervisor in the background.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.supervisor.Add(workers.NewEventFanout(o.log, o.registry, o.deliveries, o.monitoring, o.sinkTimeout))
	if o.metricInterval > 0 {
		o.supervisor.Add(workers.NewTelemetryWorker(o.log, o.store, o.monitoring, o.metricInterval))
		o.supervisor.Add(workers.NewChannelCapacityWorker(o.log,
			[]workers.NamedChannel{{Name: "deliveries", Channel: o.deliveries}},
			o.monitoring, o.metricInterval))
	}
	if o.roomIdleTTL > 0 {
		o.supervisor.Add(workers.NewRoomJanitor(o.log, o.store, o.monitoring, o.roomIdleTTL))
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	done := o.done
	o.log.Info("Starting orchestrator and all supervised workers")
	go func() {
		defer close(done)
		o.supervisor.Run(runCtx)
	}()
}

// Stop initiates a graceful shutdown of the orchestrator and waits for
// every supervised worker to return.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()

	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	o.log.Debug("Orchestrator workers stopped")
}
