package domain

import "errors"

type ConnState int

const (
	StateUnjoined ConnState = iota
	StateJoined
	StateGone
)

func (s ConnState) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateGone:
		return "gone"
	default:
		return "unknown"
	}
}

var (
	ErrConnectionGone = errors.New("connection is gone")
	ErrEmptyRoom      = errors.New("room id cannot be empty")
)

// Connection is the membership record of one live socket.
type Connection struct {
	ID    ConnID
	Room  RoomID
	Peer  PeerID
	State ConnState
}

func NewConnection(id ConnID) *Connection {
	return &Connection{
		ID:    id,
		State: StateUnjoined,
	}
}

// Join moves the connection into room, replacing any previous room. It
// returns the room the connection was in before, if any.
func (c *Connection) Join(room RoomID, peer PeerID) (RoomID, error) {
	if c.State == StateGone {
		return "", ErrConnectionGone
	}
	if room == "" {
		return "", ErrEmptyRoom
	}

	prev := c.Room
	c.Room = room
	c.Peer = peer
	c.State = StateJoined
	return prev, nil
}

// Leave marks the connection terminal and reports whether it had joined a
// room, i.e. whether anyone must be told about the departure.
func (c *Connection) Leave() bool {
	wasJoined := c.State == StateJoined
	c.State = StateGone
	return wasJoined
}

func (c *Connection) InRoom(room RoomID) bool {
	return c.State == StateJoined && c.Room == room
}

// RoomInfo is a point-in-time view of one derived room.
type RoomInfo struct {
	ID    RoomID   `json:"room"`
	Peers []PeerID `json:"peers"`
}
