// Package rendezvous implements the room-scoped WebSocket relay: a
// capacity-2 room registry that forwards signaling and chat text between
// room members and replays history to new joiners.
package rendezvous

import (
	"sync"

	"github.com/mistwave/filemesh/internal/events"
	"github.com/mistwave/filemesh/internal/petname"
)

// RoomCapacity is the maximum number of simultaneous users per room.
const RoomCapacity = 2

var nextUserID struct {
	mu sync.Mutex
	n  uint64
}

func newUserID() uint64 {
	nextUserID.mu.Lock()
	defer nextUserID.mu.Unlock()
	nextUserID.n++
	return nextUserID.n
}

// User is one connected room member.
type User struct {
	ID     uint64
	Name   string
	RoomID string
	Send   chan []byte
}

// Room holds the users and message history for one rendezvous room. Room
// IDs are client-supplied, never server-generated. users and history are
// guarded independently so a broadcast appending to history never blocks
// a join or leave that only touches users, and vice versa. Lock order is
// Registry -> Room -> (usersMu | historyMu); the two Room-level locks are
// never held at once.
type Room struct {
	ID string

	usersMu sync.Mutex
	users   map[uint64]*User

	historyMu sync.Mutex
	history   [][]byte
}

func newRoom(id string) *Room {
	return &Room{ID: id, users: make(map[uint64]*User)}
}

// Registry guards the set of live rooms. Lock order is Registry -> Room.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	bus   *events.Bus
}

// NewRegistry constructs an empty Registry.
func NewRegistry(bus *events.Bus) *Registry {
	return &Registry{rooms: make(map[string]*Room), bus: bus}
}

// errRoomFull is returned by Join when the room is already at capacity.
type errRoomFull struct{}

func (errRoomFull) Error() string { return "rendezvous: room full" }

// ErrRoomFull is returned by Join when the room already holds RoomCapacity
// users.
var ErrRoomFull error = errRoomFull{}

// Join admits a new user into roomID, creating the room if it doesn't
// exist yet. It returns ErrRoomFull if the room is already at capacity;
// the caller must close the socket without creating a User.
func (reg *Registry) Join(roomID string, send chan []byte) (*User, [][]byte, error) {
	reg.mu.Lock()
	room, existed := reg.rooms[roomID]
	if !existed {
		room = newRoom(roomID)
		reg.rooms[roomID] = room
	}
	reg.mu.Unlock()

	if !existed {
		reg.bus.Publish(events.Event{Kind: events.KindRoomAdded, Text: roomID})
	}

	room.usersMu.Lock()
	if len(room.users) >= RoomCapacity {
		room.usersMu.Unlock()
		return nil, nil, ErrRoomFull
	}

	user := &User{ID: newUserID(), Name: petname.Generate(), RoomID: roomID, Send: send}
	room.users[user.ID] = user
	room.usersMu.Unlock()

	room.historyMu.Lock()
	history := make([][]byte, len(room.history))
	copy(history, room.history)
	room.historyMu.Unlock()

	reg.bus.Publish(events.Event{Kind: events.KindRoomUserAdded, Text: user.Name})
	return user, history, nil
}

// Broadcast forwards msg to every other user in the room and appends it to
// history.
func (reg *Registry) Broadcast(roomID string, from uint64, msg []byte) {
	reg.mu.Lock()
	room, ok := reg.rooms[roomID]
	reg.mu.Unlock()
	if !ok {
		return
	}

	room.historyMu.Lock()
	room.history = append(room.history, msg)
	room.historyMu.Unlock()

	room.usersMu.Lock()
	for id, u := range room.users {
		if id == from {
			continue
		}
		select {
		case u.Send <- msg:
		default:
		}
	}
	room.usersMu.Unlock()

	reg.bus.Publish(events.Event{Kind: events.KindRoomMessageAdded, Text: roomID})
}

// Leave removes user from its room, deleting the room if it becomes empty.
func (reg *Registry) Leave(user *User) {
	reg.mu.Lock()
	room, ok := reg.rooms[user.RoomID]
	reg.mu.Unlock()
	if !ok {
		return
	}

	room.usersMu.Lock()
	delete(room.users, user.ID)
	empty := len(room.users) == 0
	room.usersMu.Unlock()

	reg.bus.Publish(events.Event{Kind: events.KindRoomUserRemoved, Text: user.Name})

	if empty {
		reg.mu.Lock()
		delete(reg.rooms, user.RoomID)
		reg.mu.Unlock()
		reg.bus.Publish(events.Event{Kind: events.KindRoomRemoved, Text: user.RoomID})
	}
}
