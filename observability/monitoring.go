package observability

import (
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// ProcessStats is the latest process sample taken by the telemetry worker.
type ProcessStats struct {
	RamBytes   uint64    `json:"ram_bytes"`
	CpuPercent float64   `json:"cpu_percent"`
	Goroutines int       `json:"goroutines"`
	AllocMemMb uint64    `json:"alloc_mem_mb"`
	NumGC      uint32    `json:"num_gc"`
	Rooms      int       `json:"rooms"`
	SampledAt  time.Time `json:"sampled_at"`
}

// QueueStats is the fill level of one named channel.
type QueueStats struct {
	Name     string `json:"name"`
	Length   int    `json:"length"`
	Capacity int    `json:"capacity"`
}

// MonitoringStats aggregates every counter for the debug endpoint.
type MonitoringStats struct {
	ActiveConnections int64        `json:"active_connections"`
	JoinsAdmitted     uint64       `json:"joins_admitted"`
	JoinsRejected     uint64       `json:"joins_rejected"`
	MessagesPosted    uint64       `json:"messages_posted"`
	DeliveriesFailed  uint64       `json:"deliveries_failed"`
	DeliveriesDropped uint64       `json:"deliveries_dropped"`
	RoomsEvicted      uint64       `json:"rooms_evicted"`
	Process           ProcessStats `json:"process"`
	Queues            []QueueStats `json:"queues"`
}

// MonitoringManager keeps lock-free counters for the hot paths and the
// latest process sample under a mutex.
type MonitoringManager struct {
	log     *slog.Logger
	mu      sync.RWMutex
	process ProcessStats
	queues  map[string]QueueStats

	activeConnections atomic.Int64
	joinsAdmitted     atomic.Uint64
	joinsRejected     atomic.Uint64
	messagesPosted    atomic.Uint64
	deliveriesFailed  atomic.Uint64
	deliveriesDropped atomic.Uint64
	roomsEvicted      atomic.Uint64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log, queues: make(map[string]QueueStats)}
}

func (mm *MonitoringManager) ConnectionOpened() { mm.activeConnections.Add(1) }
func (mm *MonitoringManager) ConnectionClosed() { mm.activeConnections.Add(-1) }
func (mm *MonitoringManager) IncrJoinAdmitted() { mm.joinsAdmitted.Add(1) }
func (mm *MonitoringManager) IncrJoinRejected() { mm.joinsRejected.Add(1) }
func (mm *MonitoringManager) IncrMessagePosted() { mm.messagesPosted.Add(1) }
func (mm *MonitoringManager) IncrDeliveryFailed() { mm.deliveriesFailed.Add(1) }
func (mm *MonitoringManager) IncrDeliveryDropped() { mm.deliveriesDropped.Add(1) }

func (mm *MonitoringManager) AddRoomsEvicted(n int) {
	mm.roomsEvicted.Add(uint64(n))
}

// UpdateProcess stores a new sample and fills the Go runtime fields.
func (mm *MonitoringManager) UpdateProcess(stats ProcessStats) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC
	stats.Goroutines = runtime.NumGoroutine()

	mm.mu.Lock()
	mm.process = stats
	mm.mu.Unlock()

	mm.log.Debug("Process stats updated",
		"ram_bytes", stats.RamBytes,
		"cpu_percent", stats.CpuPercent,
		"rooms", stats.Rooms,
		"goroutines", stats.Goroutines,
	)
}

func (mm *MonitoringManager) UpdateQueue(stats QueueStats) {
	mm.mu.Lock()
	mm.queues[stats.Name] = stats
	mm.mu.Unlock()
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	process := mm.process
	queues := lo.Values(mm.queues)
	mm.mu.RUnlock()
	slices.SortFunc(queues, func(a, b QueueStats) int {
		return strings.Compare(a.Name, b.Name)
	})

	return MonitoringStats{
		ActiveConnections: mm.activeConnections.Load(),
		JoinsAdmitted:     mm.joinsAdmitted.Load(),
		JoinsRejected:     mm.joinsRejected.Load(),
		MessagesPosted:    mm.messagesPosted.Load(),
		DeliveriesFailed:  mm.deliveriesFailed.Load(),
		DeliveriesDropped: mm.deliveriesDropped.Load(),
		RoomsEvicted:      mm.roomsEvicted.Load(),
		Process:           process,
		Queues:            queues,
	}
}
