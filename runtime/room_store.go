package runtime

import (
	"log/slog"
	"nolmessage/contract"
	"nolmessage/domain"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

var _ contract.IRoomStore = (*RoomStore)(nil)

// RoomStore owns every room of the process.
// Rooms are created on first reference and only removed by EvictIdle.
type RoomStore struct {
	mu     sync.RWMutex
	log    *slog.Logger
	limits domain.Limits
	rooms  map[domain.RoomID]*domain.Room
}

func NewRoomStore(log *slog.Logger, limits domain.Limits) *RoomStore {
	return &RoomStore{
		log:    log,
		limits: limits,
		rooms:  make(map[domain.RoomID]*domain.Room),
	}
}

// GetOrCreate returns the room for id, creating it if needed.
// The existence check is repeated under the write lock so two racing
// callers always end up with the same instance.
func (s *RoomStore) GetOrCreate(id domain.RoomID) *domain.Room {
	s.mu.RLock()
	room, ok := s.rooms[id]
	s.mu.RUnlock()
	if ok {
		return room
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok = s.rooms[id]; ok {
		return room
	}
	room = domain.NewRoom(id, s.limits)
	s.rooms[id] = room
	s.log.Debug("Room created", "room_id", id)
	return room
}

func (s *RoomStore) Get(id domain.RoomID) (*domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room, ok
}

// WithRoom runs fn on the room for id while holding the store read lock,
// so EvictIdle cannot remove the room while fn is mutating it.
func (s *RoomStore) WithRoom(id domain.RoomID, fn func(room *domain.Room)) {
	for {
		if s.withExisting(id, fn) {
			return
		}
		s.GetOrCreate(id)
	}
}

func (s *RoomStore) withExisting(id domain.RoomID, fn func(room *domain.Room)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return false
	}
	fn(room)
	return true
}

// Snapshot returns statistics for every room, sorted by id.
func (s *RoomStore) Snapshot() []domain.Stats {
	s.mu.RLock()
	rooms := lo.Values(s.rooms)
	s.mu.RUnlock()

	stats := lo.Map(rooms, func(room *domain.Room, _ int) domain.Stats {
		return room.Stats()
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats
}

// EvictIdle removes rooms without members whose last activity is older than ttl.
func (s *RoomStore) EvictIdle(now time.Time, ttl time.Duration) []domain.RoomID {
	deadline := now.Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []domain.RoomID
	for id, room := range s.rooms {
		if room.IdleSince(deadline) {
			delete(s.rooms, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
