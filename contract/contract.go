//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"nolmessage/domain"
	"nolmessage/domain/event"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
// Consume must not block longer than ctx allows.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRoomStore owns the mapping from room id to room state.
type IRoomStore interface {
	GetOrCreate(id domain.RoomID) *domain.Room
	Get(id domain.RoomID) (*domain.Room, bool)
	WithRoom(id domain.RoomID, fn func(room *domain.Room))
	Snapshot() []domain.Stats
	EvictIdle(now time.Time, ttl time.Duration) []domain.RoomID
	Len() int
}

// IRegistry owns the connection lifecycle: the outbound sink of every live
// connection and the rooms each connection was admitted to.
type IRegistry interface {
	Register(conn domain.ConnectionID, sink EventSink)
	Track(conn domain.ConnectionID, roomID domain.RoomID)
	RoomsOf(conn domain.ConnectionID) []domain.RoomID
	Unregister(conn domain.ConnectionID) []domain.RoomID
	SinksFor(conns []domain.ConnectionID) []EventSink
}

// Delivery addresses one event to a set of connections.
type Delivery struct {
	Targets []domain.ConnectionID
	Event   event.DomainEvent
}

// Dispatcher delivers events without waiting for the connections.
type Dispatcher interface {
	Deliver(ctx context.Context, delivery Delivery)
}
