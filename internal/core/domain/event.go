package domain

// Event names exchanged with the browser. These must stay byte-for-byte
// compatible with the front-end.
const (
	EventJoinRoom         = "join-room"
	EventLog              = "log"
	EventClientLog        = "client-log"
	EventUserConnected    = "user-connected"
	EventUserDisconnected = "user-disconnected"
	EventBroadcastLog     = "broadcast-log"
)

// Event is an outbound notification: a name plus positional arguments.
type Event struct {
	Name string
	Args []any
}

func NewEvent(name string, args ...any) Event {
	return Event{
		Name: name,
		Args: args,
	}
}

func UserConnected(peer PeerID) Event {
	return NewEvent(EventUserConnected, peer.String())
}

func UserDisconnected(peer PeerID) Event {
	return NewEvent(EventUserDisconnected, peer.String())
}

func BroadcastLog(message string) Event {
	return NewEvent(EventBroadcastLog, message)
}
