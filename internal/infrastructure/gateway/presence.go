package gateway

import (
	"sync"

	"notemesh/internal/core/domain"
)

// SessionID identifies one live connection inside the registry. Two tabs of
// the same user carry different session IDs and are counted separately.
type SessionID string

// Registry tracks which sessions are present in which note rooms. All
// operations take the registry lock, so a join observed by one caller is
// observed by every later caller.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.NoteID]map[SessionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[domain.NoteID]map[SessionID]struct{}),
	}
}

// Join records the session in the note's room and returns the room's new
// member count. Joining twice with the same session ID is a no-op for the
// count.
func (r *Registry) Join(noteID domain.NoteID, sid SessionID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[noteID]
	if !ok {
		room = make(map[SessionID]struct{})
		r.rooms[noteID] = room
	}
	room[sid] = struct{}{}
	return len(room)
}

// Leave removes the session from the note's room and returns the room's new
// member count. Leaving a room the session is not in returns the current
// count unchanged, so duplicate teardown paths are harmless. An empty room
// is forgotten entirely.
func (r *Registry) Leave(noteID domain.NoteID, sid SessionID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[noteID]
	if !ok {
		return 0
	}
	delete(room, sid)
	if len(room) == 0 {
		delete(r.rooms, noteID)
		return 0
	}
	return len(room)
}

// Count returns the number of sessions in the note's room. A note nobody is
// editing has count zero.
func (r *Registry) Count(noteID domain.NoteID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[noteID])
}

// Rooms returns the number of rooms with at least one member.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
