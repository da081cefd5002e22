package domain

import (
	"github.com/google/uuid"
)

// ConnID identifies one live transport connection.
type ConnID uuid.UUID

// RoomID is any client-chosen room name. The empty RoomID means "no room".
type RoomID string

// PeerID is the identifier the browser peer library assigned to a client.
// The coordinator never interprets it.
type PeerID string

func NewConnID() ConnID {
	return ConnID(uuid.New())
}

func NewPeerID() PeerID {
	return PeerID(uuid.New().String())
}

func (id ConnID) String() string {
	return uuid.UUID(id).String()
}

func (id RoomID) String() string {
	return string(id)
}

func (id PeerID) String() string {
	return string(id)
}
