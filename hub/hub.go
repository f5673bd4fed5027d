package hub

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/mding5692/videre-server/domain"
)

// Hub is the room registry. All room state sits behind one lock; signaling
// traffic is small next to the media it sets up.
type Hub struct {
	rooms map[string][]domain.Member
	mu    sync.RWMutex
}

func New() *Hub {
	return &Hub{
		rooms: make(map[string][]domain.Member),
	}
}

// AddMember appends m to roomID and reports whether the call created the room.
// The existence check and the insert happen under the same lock.
func (h *Hub) AddMember(roomID string, m domain.Member) bool {
	h.mu.Lock()
	members, exists := h.rooms[roomID]
	created := !exists || len(members) == 0
	m.IsInitiator = created
	h.rooms[roomID] = append(members, m)
	count := len(h.rooms[roomID])
	h.mu.Unlock()

	if created {
		slog.Info("room created", "room", roomID, "userId", m.UserID, "clientId", m.Conn.ID())
	} else {
		slog.Info("member added", "room", roomID, "userId", m.UserID, "clientId", m.Conn.ID(), "members", count)
	}
	return created
}

// RemoveByConnection drops the first member bound to conn from every room and
// deletes rooms left empty.
func (h *Hub) RemoveByConnection(conn domain.Connection) []domain.Removal {
	h.mu.Lock()
	var removed []domain.Removal
	for roomID, members := range h.rooms {
		i := slices.IndexFunc(members, func(m domain.Member) bool { return m.Conn == conn })
		if i < 0 {
			continue
		}
		removed = append(removed, domain.Removal{RoomID: roomID, Member: members[i]})
		h.rooms[roomID] = slices.Delete(members, i, i+1)
	}
	pruned := h.pruneLocked()
	h.mu.Unlock()

	for _, r := range removed {
		slog.Info("member removed", "room", r.RoomID, "userId", r.Member.UserID, "clientId", conn.ID())
	}
	logPruned(pruned)
	return removed
}

func (h *Hub) ListUserIDs(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[roomID]))
	for _, m := range h.rooms[roomID] {
		ids = append(ids, m.UserID)
	}
	return ids
}

// ListMembers returns a snapshot safe to range over without holding the lock.
func (h *Hub) ListMembers(roomID string) []domain.Member {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.rooms[roomID])
}

func (h *Hub) PruneEmptyRooms() {
	h.mu.Lock()
	pruned := h.pruneLocked()
	h.mu.Unlock()

	logPruned(pruned)
}

func (h *Hub) pruneLocked() []string {
	var pruned []string
	for roomID, members := range h.rooms {
		if len(members) == 0 {
			delete(h.rooms, roomID)
			pruned = append(pruned, roomID)
		}
	}
	return pruned
}

func logPruned(rooms []string) {
	for _, roomID := range rooms {
		slog.Info("room removed", "room", roomID)
	}
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, members := range h.rooms {
		clients += len(members)
	}
	return rooms, clients
}
