package domain

// Command is an inbound action from one connection. The set is closed:
// Join, Log and Disconnect.
type Command interface {
	Conn() ConnID
	isCommand()
}

// Join asks to place the connection in Room under the given Peer identifier.
type Join struct {
	ConnID ConnID
	Room   RoomID
	Peer   PeerID
}

// Log carries diagnostic text to relay. Room is whatever the client claimed
// and is only informational; relay always targets the sender's current room.
type Log struct {
	ConnID  ConnID
	Room    RoomID
	Message string
}

// Disconnect is raised by the transport when the socket is gone.
type Disconnect struct {
	ConnID ConnID
}

func (c Join) Conn() ConnID       { return c.ConnID }
func (c Log) Conn() ConnID        { return c.ConnID }
func (c Disconnect) Conn() ConnID { return c.ConnID }

func (Join) isCommand()       {}
func (Log) isCommand()        {}
func (Disconnect) isCommand() {}
