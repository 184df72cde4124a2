// Package room provides the in-memory registry of whiteboard rooms.
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collab-whiteboard/backend/internal/model"
)

// Room is an ephemeral collaboration session: the set of member connection
// ids plus the most recently broadcast canvas snapshot.
type Room struct {
	ID        string
	CreatedAt time.Time

	members  map[string]bool
	snapshot string
}

// Registry is the authoritative, process-lifetime store of rooms.
//
// A room exists in the registry iff it has at least one member: rooms are
// seeded with their creator and deleted the moment the last member leaves.
// The snapshot is last-write-wins, no ordering guarantees beyond "latest".
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Create inserts a new room with a fresh id, seeded with creatorID as its
// first member, and returns the room id.
func (r *Registry) Create(creatorID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New().String()
	r.rooms[id] = &Room{
		ID:        id,
		CreatedAt: time.Now(),
		members:   map[string]bool{creatorID: true},
	}
	return id
}

// Exists reports whether a room with the given id is live.
func (r *Registry) Exists(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[roomID]
	return ok
}

// AddMember adds a connection to a room's member set. Adding an
// already-present member is a no-op. Returns ErrRoomNotFound if the room
// does not exist; the registry is left untouched in that case.
func (r *Registry) AddMember(roomID, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return model.ErrRoomNotFound
	}
	room.members[connID] = true
	return nil
}

// RemoveMember removes a connection from a room's member set. When the last
// member leaves, the room is deleted and its snapshot released. Returns true
// if the room was deleted. Unknown rooms and non-members are no-ops.
func (r *Registry) RemoveMember(roomID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	delete(room.members, connID)

	if len(room.members) == 0 {
		delete(r.rooms, roomID)
		return true
	}
	return false
}

// SetSnapshot replaces the room's cached canvas snapshot. No-op if the room
// does not exist.
func (r *Registry) SetSnapshot(roomID, data string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		room.snapshot = data
	}
}

// ClearSnapshot drops the room's cached canvas snapshot. No-op if the room
// does not exist.
func (r *Registry) ClearSnapshot(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		room.snapshot = ""
	}
}

// Snapshot returns the room's cached canvas snapshot and whether one is
// present. A room with no draws since creation or the last reset has none.
func (r *Registry) Snapshot(roomID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok || room.snapshot == "" {
		return "", false
	}
	return room.snapshot, true
}

// MemberCount returns the number of members in a room, or 0 if it does not
// exist.
func (r *Registry) MemberCount(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	return len(room.members)
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
