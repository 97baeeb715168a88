package collab

import (
	"sync"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// Registry is the authoritative mapping of room id to live participant
// set. It is pure membership bookkeeping: no password checks, no document
// access. Participant entries are stored as values in a per-room arena
// keyed by user id, with a separate order slice so listings are
// deterministic (insertion order).
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry
}

type roomEntry struct {
	order   []string
	members map[string]*domain.Participant
	active  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*roomEntry)}
}

// Register ensures a (possibly empty) membership set exists for the room.
// Idempotent.
func (r *Registry) Register(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(roomID)
}

func (r *Registry) entry(roomID string) *roomEntry {
	e, ok := r.rooms[roomID]
	if !ok {
		e = &roomEntry{members: make(map[string]*domain.Participant)}
		r.rooms[roomID] = e
	}
	return e
}

// AddParticipant adds p to the room. A user who already holds a live entry
// is replaced in place (same insertion slot) rather than duplicated, so
// reconnects keep rosters stable. Returns ErrRoomFull when the room is at
// maxParticipants and p is not already a member; the set is not mutated in
// that case. The replaced result reports whether an existing entry was
// superseded.
func (r *Registry) AddParticipant(roomID string, p *domain.Participant, maxParticipants int) (replaced bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(roomID)
	if _, ok := e.members[p.UserID]; ok {
		e.members[p.UserID] = p
		e.active = true
		return true, nil
	}
	if maxParticipants > 0 && len(e.members) >= maxParticipants {
		return false, ErrRoomFull
	}
	e.members[p.UserID] = p
	e.order = append(e.order, p.UserID)
	e.active = true
	return false, nil
}

// RemoveParticipant removes the user's entry. It is a no-op when the user
// is absent, so duplicate disconnect signals are harmless; removed reports
// whether an entry actually existed. When the last participant leaves the
// room is marked inactive but its entry is retained (room metadata
// deletion is an explicit action outside this core).
func (r *Registry) RemoveParticipant(roomID, userID string) (removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := e.members[userID]; !ok {
		return false
	}
	delete(e.members, userID)
	for i, id := range e.order {
		if id == userID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if len(e.members) == 0 {
		e.active = false
	}
	return true
}

// ListParticipants returns copies of the room's participants in insertion
// order.
func (r *Registry) ListParticipants(roomID string) []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]domain.Participant, 0, len(e.order))
	for _, id := range e.order {
		if p, ok := e.members[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Count returns the number of live participants in the room.
func (r *Registry) Count(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	return len(e.members)
}

// UpdateCursor mutates the user's own cursor/selection entry. Returns
// false when the user holds no live entry in the room.
func (r *Registry) UpdateCursor(roomID, userID string, pos domain.CursorPosition, sel *domain.SelectionRange) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	p, ok := e.members[userID]
	if !ok {
		return false
	}
	p.Cursor = pos
	p.Selection = sel
	return true
}

// Get returns a copy of the user's participant entry.
func (r *Registry) Get(roomID, userID string) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[roomID]
	if !ok {
		return domain.Participant{}, false
	}
	p, ok := e.members[userID]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// ActiveRoomIDs returns the ids of rooms with at least one participant.
func (r *Registry) ActiveRoomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for id, e := range r.rooms {
		if e.active && len(e.members) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Drop removes a room's entry entirely (after deactivation).
func (r *Registry) Drop(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}
