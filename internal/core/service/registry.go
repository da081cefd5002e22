package service

import (
	"cmp"
	"slices"

	"github.com/Wyydra/huddle/internal/core/domain"
	"github.com/Wyydra/huddle/internal/core/port"
)

type entry struct {
	conn   *domain.Connection
	client port.Client
}

// Registry maps live connections to their membership. Rooms are derived from
// it on demand and never stored. Not safe for concurrent use; RoomService
// owns it from a single goroutine.
type Registry struct {
	entries map[domain.ConnID]*entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[domain.ConnID]*entry),
	}
}

// Register adds an unjoined connection. Registering an ID twice replaces the
// client but keeps the membership.
func (r *Registry) Register(c port.Client) {
	if e, ok := r.entries[c.ID()]; ok {
		e.client = c
		return
	}
	r.entries[c.ID()] = &entry{
		conn:   domain.NewConnection(c.ID()),
		client: c,
	}
}

// Join sets the connection's room and peer. ok is false for unknown
// connections.
func (r *Registry) Join(id domain.ConnID, room domain.RoomID, peer domain.PeerID) (prev domain.RoomID, ok bool, err error) {
	e, ok := r.entries[id]
	if !ok {
		return "", false, nil
	}
	prev, err = e.conn.Join(room, peer)
	return prev, true, err
}

// Unregister removes the connection and returns its final membership record.
// Unknown IDs are a no-op.
func (r *Registry) Unregister(id domain.ConnID) (domain.Connection, bool) {
	e, ok := r.entries[id]
	if !ok {
		return domain.Connection{}, false
	}
	delete(r.entries, id)

	last := *e.conn
	e.conn.Leave()
	return last, true
}

func (r *Registry) Lookup(id domain.ConnID) (domain.Connection, bool) {
	e, ok := r.entries[id]
	if !ok {
		return domain.Connection{}, false
	}
	return *e.conn, true
}

// Members returns the clients in room, skipping exclude.
func (r *Registry) Members(room domain.RoomID, exclude domain.ConnID) []port.Client {
	var out []port.Client
	for id, e := range r.entries {
		if id == exclude || !e.conn.InRoom(room) {
			continue
		}
		out = append(out, e.client)
	}
	return out
}

// Rooms derives the current rooms, sorted by ID with peers sorted within.
func (r *Registry) Rooms() []domain.RoomInfo {
	byRoom := make(map[domain.RoomID][]domain.PeerID)
	for _, e := range r.entries {
		if e.conn.State != domain.StateJoined {
			continue
		}
		byRoom[e.conn.Room] = append(byRoom[e.conn.Room], e.conn.Peer)
	}

	out := make([]domain.RoomInfo, 0, len(byRoom))
	for id, peers := range byRoom {
		slices.Sort(peers)
		out = append(out, domain.RoomInfo{ID: id, Peers: peers})
	}
	slices.SortFunc(out, func(a, b domain.RoomInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *Registry) Clients() []port.Client {
	out := make([]port.Client, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.client)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.entries)
}
