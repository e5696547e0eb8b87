package domain

import (
	"nolmessage/errors"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Room holds the members and the rolling history of one chat room.
// Its mutex covers both fields so join, append and leave are serialized
// within a room while distinct rooms proceed independently.
type Room struct {
	ID           RoomID
	mu           sync.Mutex
	maxMembers   int
	maxHistory   int
	members      map[ConnectionID]struct{}
	messages     []Message
	lastActivity time.Time
}

func NewRoom(id RoomID, limits Limits) *Room {
	return &Room{
		ID:           id,
		maxMembers:   limits.MaxMembers,
		maxHistory:   limits.MaxHistory,
		members:      make(map[ConnectionID]struct{}),
		messages:     make([]Message, 0, limits.MaxHistory),
		lastActivity: time.Now(),
	}
}

// TryJoin admits conn unless the room already holds maxMembers connections.
// On success it returns a point-in-time copy of the history.
func (r *Room) TryJoin(conn ConnectionID) ([]Message, error) {
	var history []Message
	err := r.TryJoinFunc(conn, func(snapshot []Message) {
		history = snapshot
	})
	return history, err
}

// TryJoinFunc is TryJoin with onAdmitted called while the room is still locked,
// so whatever it enqueues is ordered before any later message of the room.
// onAdmitted must not block nor call back into the room.
func (r *Room) TryJoinFunc(conn ConnectionID, onAdmitted func(history []Message)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) >= r.maxMembers {
		return errors.ErrRoomFull
	}
	r.members[conn] = struct{}{}
	r.lastActivity = time.Now()
	if onAdmitted != nil {
		onAdmitted(r.historyLocked())
	}
	return nil
}

// Append stores a message, evicting the oldest entries beyond maxHistory.
// There is no membership precondition.
func (r *Room) Append(message Message) {
	r.AppendFunc(message, nil)
}

// AppendFunc is Append with onAppended called under the room lock with the
// members at that instant. onAppended must not block nor call back into the room.
func (r *Room) AppendFunc(message Message, onAppended func(members []ConnectionID)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, message)
	if overflow := len(r.messages) - r.maxHistory; overflow > 0 {
		// Shift in place so the backing array does not grow forever.
		n := copy(r.messages, r.messages[overflow:])
		clear(r.messages[n:])
		r.messages = r.messages[:n]
	}
	r.lastActivity = time.Now()
	if onAppended != nil {
		onAppended(lo.Keys(r.members))
	}
}

// Leave is a no-op when conn is not a member.
func (r *Room) Leave(conn ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[conn]; !ok {
		return
	}
	delete(r.members, conn)
	r.lastActivity = time.Now()
}

func (r *Room) Members() []ConnectionID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Keys(r.members)
}

func (r *Room) IsMember(conn ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[conn]
	return ok
}

func (r *Room) History() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.historyLocked()
}

// Stats is a consistent view of the room taken under one lock.
type Stats struct {
	ID           RoomID
	Members      int
	Capacity     int
	History      int
	LastActivity time.Time
}

func (r *Room) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		ID:           r.ID,
		Members:      len(r.members),
		Capacity:     r.maxMembers,
		History:      len(r.messages),
		LastActivity: r.lastActivity,
	}
}

// IdleSince reports whether the room has no members and no activity since before.
func (r *Room) IdleSince(before time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0 && r.lastActivity.Before(before)
}

func (r *Room) historyLocked() []Message {
	history := make([]Message, len(r.messages))
	copy(history, r.messages)
	return history
}
