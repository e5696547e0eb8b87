package workers

import (
	"context"
	"log/slog"
	"nolmessage/contract"
	"nolmessage/observability"
	"time"
)

var _ contract.Worker = (*RoomJanitor)(nil)

// RoomJanitor removes rooms that have been empty for longer than idleTTL.
// It is only started when an idle TTL is configured.
type RoomJanitor struct {
	log        *slog.Logger
	store      contract.IRoomStore
	monitoring *observability.MonitoringManager
	idleTTL    time.Duration
	interval   time.Duration
}

func NewRoomJanitor(
	log *slog.Logger,
	store contract.IRoomStore,
	monitoring *observability.MonitoringManager,
	idleTTL time.Duration,
) *RoomJanitor {
	return &RoomJanitor{
		log:        log,
		store:      store,
		monitoring: monitoring,
		idleTTL:    idleTTL,
		interval:   max(idleTTL/2, time.Second),
	}
}

func (w *RoomJanitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping room janitor")
			return nil
		case now := <-ticker.C:
			w.Sweep(now)
		}
	}
}

func (w *RoomJanitor) Sweep(now time.Time) {
	evicted := w.store.EvictIdle(now, w.idleTTL)
	if len(evicted) == 0 {
		return
	}
	w.monitoring.AddRoomsEvicted(len(evicted))
	w.log.Info("Idle rooms evicted", "count", len(evicted), "rooms", evicted)
}
