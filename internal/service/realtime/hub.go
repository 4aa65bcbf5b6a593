// Package realtime holds the in-process connection registry and the
// fan-out dispatcher for the live notification channel. The registry is
// process-local and ephemeral: sessions are lost on restart and never
// recovered from storage.
package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrNoUser = errors.New("realtime: session has no user id")

// Session is one live client connection. The hub never touches the
// transport: anything that can emit a named event can be registered.
type Session interface {
	ID() string
	UserID() uuid.UUID
	CompanyID() *uuid.UUID
	Emit(event string, data any) error
}

// Hub maps user ids to their live sessions and tracks room membership
// (per-user room, per-company room, type-topic rooms). All mutation of
// the session table goes through the hub's lock so concurrent
// connect/disconnect for the same user cannot lose updates.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[Session]struct{}
	rooms    map[string]map[Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]map[Session]struct{}),
		rooms:    make(map[string]map[Session]struct{}),
	}
}

func userRoom(userID uuid.UUID) string    { return "user:" + userID.String() }
func CompanyRoom(companyID string) string { return "company:" + companyID }

// TopicRoom names the room for a notification-type topic.
func TopicRoom(topic string) string { return "topic:" + topic }

// Register adds a session under its user id and joins the user room
// and, when the session carries one, the company room. A session
// without a verified user id is rejected.
func (h *Hub) Register(s Session) error {
	if s.UserID() == uuid.Nil {
		return ErrNoUser
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.UserID()]; !ok {
		h.sessions[s.UserID()] = make(map[Session]struct{})
	}
	h.sessions[s.UserID()][s] = struct{}{}

	h.joinLocked(s, userRoom(s.UserID()))
	if cid := s.CompanyID(); cid != nil {
		h.joinLocked(s, CompanyRoom(cid.String()))
	}

	return nil
}

// Unregister removes a session everywhere it is registered. When it was
// the user's last session the user disappears from the registry.
func (h *Hub) Unregister(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.sessions[s.UserID()]; ok {
		delete(conns, s)
		if len(conns) == 0 {
			delete(h.sessions, s.UserID())
		}
	}

	for room, members := range h.rooms {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) joinLocked(s Session, room string) {
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[Session]struct{})
	}
	h.rooms[room][s] = struct{}{}
}

func (h *Hub) Join(s Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(s, room)
}

func (h *Hub) Leave(s Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// SessionsFor returns a point-in-time snapshot of a user's sessions.
// Dispatch iterates the snapshot without holding the lock, so a
// concurrent disconnect shows up as a failed emit, not a corrupted set.
func (h *Hub) SessionsFor(userID uuid.UUID) []Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.sessions[userID]
	if !ok {
		return nil
	}

	out := make([]Session, 0, len(conns))
	for s := range conns {
		out = append(out, s)
	}
	return out
}

func (h *Hub) IsConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID]) > 0
}

// ConnectedUserIDs snapshots every registered user id.
func (h *Hub) ConnectedUserIDs() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(h.sessions))
	for id := range h.sessions {
		out = append(out, id)
	}
	return out
}

// CompanyUserIDs returns the distinct connected users whose sessions
// carry the given company id.
func (h *Hub) CompanyUserIDs(companyID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[CompanyRoom(companyID.String())]
	if !ok {
		return nil
	}

	seen := make(map[uuid.UUID]struct{}, len(members))
	out := make([]uuid.UUID, 0, len(members))
	for s := range members {
		if _, dup := seen[s.UserID()]; dup {
			continue
		}
		seen[s.UserID()] = struct{}{}
		out = append(out, s.UserID())
	}
	return out
}

// SessionCount reports the number of live sessions across all users.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, conns := range h.sessions {
		total += len(conns)
	}
	return total
}
