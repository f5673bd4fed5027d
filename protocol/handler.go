package protocol

import (
	"log/slog"

	"github.com/mding5692/videre-server/domain"
)

// Handler is the signaling state machine. A connection's state lives only in
// the registry: it is joined to the room holding its member, if any.
type Handler struct {
	registry domain.Registry
}

func NewHandler(r domain.Registry) *Handler {
	return &Handler{registry: r}
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	slog.Debug("message received", "clientId", conn.ID(), "data", string(data))

	msg, err := Decode(data)
	if err != nil {
		slog.Warn("invalid message", "clientId", conn.ID(), "error", err)
		return
	}

	switch msg.Event() {
	case domain.EventConnect:
		h.connect(conn, msg)
	case domain.EventBroadcast:
		h.fanOut(msg.Header.RoomID, msg)
	case domain.EventPing:
		h.ping(conn, msg)
	case domain.EventDisconnect:
		h.disconnect(conn)
	case domain.EventUnknown:
		slog.Debug("unknown event ignored", "clientId", conn.ID(), "event", msg.Header.Event)
	}
}

// Close tears down whatever membership conn still holds. Safe to call more
// than once.
func (h *Handler) Close(conn domain.Connection) {
	h.disconnect(conn)
}

func (h *Handler) connect(conn domain.Connection, msg domain.Message) {
	slog.Info("user connected", "clientId", conn.ID(), "userId", msg.Header.UserID, "room", msg.Header.RoomID)

	h.disconnect(conn)

	initiator := h.registry.AddMember(msg.Header.RoomID, domain.Member{
		UserID: msg.Header.UserID,
		Conn:   conn,
	})

	msg.Payload = EncodeBool(initiator)
	h.fanOut(msg.Header.RoomID, msg)
}

func (h *Handler) ping(conn domain.Connection, msg domain.Message) {
	msg.Payload = EncodeUserIDs(h.registry.ListUserIDs(msg.Header.RoomID))
	data, err := Encode(msg)
	if err != nil {
		slog.Warn("marshal error", "clientId", conn.ID(), "error", err)
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Debug("send failed", "clientId", conn.ID(), "error", err)
	}
}

// disconnect runs after the departing member is gone, so it never hears its
// own departure.
func (h *Handler) disconnect(conn domain.Connection) {
	removed := h.registry.RemoveByConnection(conn)
	for _, r := range removed {
		slog.Info("user left", "clientId", conn.ID(), "userId", r.Member.UserID, "room", r.RoomID)
		h.fanOut(r.RoomID, domain.Message{
			Header: domain.Header{
				Event:  domain.EventDisconnect.String(),
				UserID: r.Member.UserID,
				RoomID: r.RoomID,
			},
		})
	}
	h.registry.PruneEmptyRooms()
}

// fanOut delivers msg to every current member of roomID. A failed send is
// dropped and does not stop delivery to the others.
func (h *Handler) fanOut(roomID string, msg domain.Message) {
	members := h.registry.ListMembers(roomID)
	if len(members) == 0 {
		return
	}

	data, err := Encode(msg)
	if err != nil {
		slog.Warn("marshal error", "room", roomID, "error", err)
		return
	}

	for _, m := range members {
		if err := m.Conn.Send(data); err != nil {
			slog.Debug("send failed", "room", roomID, "clientId", m.Conn.ID(), "error", err)
		}
	}
}
