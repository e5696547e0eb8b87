package runtime

import (
	"nolmessage/contract"
	"nolmessage/domain"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[domain.RoomID]struct{}

// Registry is the owner of the connection lifecycle.
// Rooms do not know about sinks and do not know which rooms a connection
// joined, so both lookups live here.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[domain.ConnectionID]contract.EventSink // map connection -> Sink
	connRooms map[domain.ConnectionID]Set                // map connection to admitted rooms
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[domain.ConnectionID]contract.EventSink),
		connRooms: make(map[domain.ConnectionID]Set),
	}
}

// Register records the outbound sink of a freshly accepted connection.
func (r *Registry) Register(conn domain.ConnectionID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn] = sink
}

// Track remembers that conn was admitted into roomID, so the room can be
// cleaned when the connection goes away.
func (r *Registry) Track(conn domain.ConnectionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connRooms[conn]; !ok {
		r.connRooms[conn] = make(Set)
	}
	r.connRooms[conn][roomID] = struct{}{}
}

func (r *Registry) RoomsOf(conn domain.ConnectionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.connRooms[conn])
}

// Unregister forgets the connection and returns the rooms it was admitted to.
// Calling it twice returns nothing the second time.
func (r *Registry) Unregister(conn domain.ConnectionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := lo.Keys(r.connRooms[conn])
	delete(r.connRooms, conn)
	delete(r.sessions, conn)
	return rooms
}

// SinksFor resolves connection ids into sinks, skipping unknown connections.
func (r *Registry) SinksFor(conns []domain.ConnectionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(conns, func(conn domain.ConnectionID, _ int) (contract.EventSink, bool) {
		sink, ok := r.sessions[conn]
		return sink, ok
	})
}
