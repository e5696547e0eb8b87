package domain

import (
	"fmt"
	"nolmessage/errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoom_TryJoin_Admits_Up_To_Capacity(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", DefaultLimits())

	// Given 15 distinct connections join
	for i := 0; i < DefaultMaxMembers; i++ {
		_, err := room.TryJoin(ConnectionID(fmt.Sprintf("conn-%d", i)))
		req.NoError(err)
	}

	// When a 16th connection tries to join
	history, err := room.TryJoin("conn-16")

	// Then it is rejected and membership is unchanged
	req.ErrorIs(err, errors.ErrRoomFull)
	req.Nil(history)
	req.Len(room.Members(), DefaultMaxMembers)
	req.False(room.IsMember("conn-16"))
}

func TestRoom_TryJoin_Concurrent_Arrivals_Never_Exceed_Capacity(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", DefaultLimits())

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted, rejected := 0, 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := room.TryJoin(ConnectionID(fmt.Sprintf("conn-%d", i)))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejected++
				return
			}
			admitted++
		}(i)
	}
	wg.Wait()

	req.Equal(DefaultMaxMembers, admitted)
	req.Equal(40-DefaultMaxMembers, rejected)
	req.Len(room.Members(), DefaultMaxMembers)
}

func TestRoom_TryJoin_Same_Connection_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", DefaultLimits())

	_, err := room.TryJoin("conn-1")
	req.NoError(err)
	_, err = room.TryJoin("conn-1")
	req.NoError(err)

	req.Len(room.Members(), 1)
}

func TestRoom_TryJoin_Returns_History_Snapshot(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", DefaultLimits())
	room.Append(Message{User: "a", Text: "first"})

	history, err := room.TryJoin("conn-1")
	req.NoError(err)
	req.Len(history, 1)

	// Later appends do not leak into the snapshot already handed out
	room.Append(Message{User: "a", Text: "second"})
	req.Len(history, 1)
	req.Len(room.History(), 2)

	// Mutating the snapshot does not touch the room
	history[0].Text = "changed"
	req.Equal("first", room.History()[0].Text)
}

func TestRoom_Append_Keeps_Last_Messages_In_Fifo_Order(t *testing.T) {
	req := require.New(t)
	room := NewRoom("x", DefaultLimits())

	// When 26 messages are sent
	for i := 0; i < 26; i++ {
		room.Append(Message{User: "a", Text: fmt.Sprintf("hi-%d", i)})
	}

	// Then only 25 remain and the first one was evicted
	history := room.History()
	req.Len(history, DefaultMaxHistory)
	req.Equal("hi-1", history[0].Text)
	req.Equal("hi-25", history[len(history)-1].Text)
}

func TestRoom_Append_History_Length_Is_Min_Of_Sends_And_Capacity(t *testing.T) {
	req := require.New(t)
	limits := DefaultLimits()
	limits.MaxHistory = 5

	for _, sends := range []int{0, 1, 4, 5, 6, 17} {
		room := NewRoom("x", limits)
		for i := 0; i < sends; i++ {
			room.Append(Message{Text: fmt.Sprintf("%d", i)})
		}
		history := room.History()
		req.Len(history, min(sends, limits.MaxHistory))
		for i, msg := range history {
			// Oldest survivor is the (N-cap+1)-th sent, order preserved
			req.Equal(fmt.Sprintf("%d", max(0, sends-limits.MaxHistory)+i), msg.Text)
		}
	}
}

func TestRoom_Leave_Frees_A_Slot(t *testing.T) {
	req := require.New(t)
	limits := DefaultLimits()
	limits.MaxMembers = 2
	room := NewRoom("lobby", limits)

	_, _ = room.TryJoin("conn-1")
	_, _ = room.TryJoin("conn-2")
	_, err := room.TryJoin("conn-3")
	req.ErrorIs(err, errors.ErrRoomFull)

	room.Leave("conn-1")
	req.False(room.IsMember("conn-1"))

	_, err = room.TryJoin("conn-3")
	req.NoError(err)
}

func TestRoom_Leave_Unknown_Connection_Is_NoOp(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", DefaultLimits())
	_, _ = room.TryJoin("conn-1")

	room.Leave("ghost")
	room.Leave("ghost")

	req.Len(room.Members(), 1)
}

func TestRoom_IdleSince(t *testing.T) {
	req := require.New(t)
	room := NewRoom("lobby", DefaultLimits())

	req.True(room.IdleSince(time.Now().Add(time.Minute)))
	req.False(room.IdleSince(time.Now().Add(-time.Minute)))

	_, _ = room.TryJoin("conn-1")
	req.False(room.IdleSince(time.Now().Add(time.Minute)))

	stats := room.Stats()
	req.Equal(RoomID("lobby"), stats.ID)
	req.Equal(1, stats.Members)
	req.Equal(DefaultMaxMembers, stats.Capacity)
}
