package domain

import "errors"

// ErrMalformedMessage is returned when inbound bytes cannot be decoded into a Message.
var ErrMalformedMessage = errors.New("malformed message")

type Event int

const (
	EventUnknown Event = iota
	EventConnect
	EventBroadcast
	EventPing
	EventDisconnect
)

var eventNames = map[Event]string{
	EventConnect:    "connect",
	EventBroadcast:  "broadcast",
	EventPing:       "ping",
	EventDisconnect: "disconnect",
}

// ParseEvent maps a wire event name to an Event. Names are case-sensitive.
func ParseEvent(name string) Event {
	for ev, n := range eventNames {
		if n == name {
			return ev
		}
	}
	return EventUnknown
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return "unknown"
}

type Header struct {
	Event  string `json:"Event"`
	UserID string `json:"UserId"`
	RoomID string `json:"RoomId"`
}

// Message is the single wire shape used in both directions.
type Message struct {
	Header  Header `json:"Header"`
	Payload string `json:"Payload"`
}

func (m Message) Event() Event {
	return ParseEvent(m.Header.Event)
}

// Connection is an opaque handle to one client transport. The core compares
// it by identity and sends on it; closing belongs to the transport.
type Connection interface {
	ID() string
	Send(data []byte) error
}

type Member struct {
	UserID      string
	Conn        Connection
	IsInitiator bool
}

// Removal records one membership dropped by Registry.RemoveByConnection.
type Removal struct {
	RoomID string
	Member Member
}

type Registry interface {
	AddMember(roomID string, m Member) bool
	RemoveByConnection(conn Connection) []Removal
	ListUserIDs(roomID string) []string
	ListMembers(roomID string) []Member
	PruneEmptyRooms()
	Stats() (rooms, clients int)
}

type MessageHandler interface {
	Handle(conn Connection, data []byte)
	Close(conn Connection)
}
