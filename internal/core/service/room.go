package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Wyydra/huddle/internal/core/domain"
	"github.com/Wyydra/huddle/internal/core/port"
	"github.com/rs/zerolog"
)

const DefaultInboxSize = 256

var ErrStopped = errors.New("room service stopped")

// op is anything the run loop accepts. All ops share one FIFO inbox so that a
// connection's own events are applied in the order it sent them.
type op interface {
	isOp()
}

type registerOp struct {
	client port.Client
}

type commandOp struct {
	cmd domain.Command
}

type roomsOp struct {
	reply chan []domain.RoomInfo
}

func (registerOp) isOp() {}
func (commandOp) isOp()  {}
func (roomsOp) isOp()    {}

// RoomService coordinates room membership. The registry is only touched by
// the goroutine executing Run, so every step sees a consistent view.
type RoomService struct {
	registry *Registry
	inbox    chan op
	done     chan struct{}
	log      zerolog.Logger
}

func NewRoomService(logger zerolog.Logger, inboxSize int) *RoomService {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	return &RoomService{
		registry: NewRegistry(),
		inbox:    make(chan op, inboxSize),
		done:     make(chan struct{}),
		log:      logger.With().Str("component", "rooms").Logger(),
	}
}

// Connect registers a freshly handshaken client with no room.
func (s *RoomService) Connect(ctx context.Context, c port.Client) error {
	return s.enqueue(ctx, registerOp{client: c})
}

func (s *RoomService) Join(ctx context.Context, id domain.ConnID, room domain.RoomID, peer domain.PeerID) error {
	return s.Handle(ctx, domain.Join{ConnID: id, Room: room, Peer: peer})
}

func (s *RoomService) Log(ctx context.Context, id domain.ConnID, room domain.RoomID, message string) error {
	return s.Handle(ctx, domain.Log{ConnID: id, Room: room, Message: message})
}

func (s *RoomService) Disconnect(ctx context.Context, id domain.ConnID) error {
	return s.Handle(ctx, domain.Disconnect{ConnID: id})
}

// Handle queues cmd for the run loop. It blocks only while the inbox is full.
func (s *RoomService) Handle(ctx context.Context, cmd domain.Command) error {
	return s.enqueue(ctx, commandOp{cmd: cmd})
}

// Rooms returns a snapshot taken after every previously queued op.
func (s *RoomService) Rooms(ctx context.Context) ([]domain.RoomInfo, error) {
	reply := make(chan []domain.RoomInfo, 1)
	if err := s.enqueue(ctx, roomsOp{reply: reply}); err != nil {
		return nil, err
	}

	select {
	case rooms := <-reply:
		return rooms, nil
	case <-s.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once Run has returned.
func (s *RoomService) Done() <-chan struct{} {
	return s.done
}

// Run processes the inbox until ctx is cancelled, then closes every client
// still registered. It must be called exactly once.
func (s *RoomService) Run(ctx context.Context) error {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Int("count", s.registry.Len()).Msg("Stopping RoomService. Disconnecting all clients.")
			s.closeAll()
			return nil

		case o := <-s.inbox:
			s.step(o)
		}
	}
}

func (s *RoomService) enqueue(ctx context.Context, o op) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}

	select {
	case s.inbox <- o:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RoomService) step(o op) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Msg("Recovered from panic in room service")
		}
	}()

	switch o := o.(type) {
	case registerOp:
		s.registry.Register(o.client)
		s.log.Info().Int("count", s.registry.Len()).Str("conn_id", o.client.ID().String()).Msg("Client registered")
	case commandOp:
		s.apply(o.cmd)
	case roomsOp:
		o.reply <- s.registry.Rooms()
	}
}

// apply is the single state-transition function for inbound commands.
func (s *RoomService) apply(cmd domain.Command) {
	switch c := cmd.(type) {
	case domain.Join:
		s.join(c)
	case domain.Log:
		s.relayLog(c)
	case domain.Disconnect:
		s.disconnect(c)
	default:
		s.log.Warn().Type("command", cmd).Msg("Unknown command")
	}
}

func (s *RoomService) join(c domain.Join) {
	l := s.log.With().
		Str("conn_id", c.ConnID.String()).
		Str("room", c.Room.String()).
		Str("peer", c.Peer.String()).
		Logger()

	if c.Room == "" {
		l.Debug().Msg("Ignoring join without room")
		return
	}

	prev, ok, err := s.registry.Join(c.ConnID, c.Room, c.Peer)
	if !ok {
		l.Warn().Msg("Join from unknown connection")
		return
	}
	if err != nil {
		l.Warn().Err(err).Msg("Join rejected")
		return
	}
	if prev != "" && prev != c.Room {
		// The previous room is not told about the move.
		l.Warn().Str("previous_room", prev.String()).Msg("Connection switched rooms without leaving")
	}

	l.Info().Msg("User joining room")
	s.broadcast(c.Room, c.ConnID, domain.UserConnected(c.Peer))
}

func (s *RoomService) relayLog(c domain.Log) {
	conn, ok := s.registry.Lookup(c.ConnID)
	if !ok || conn.State != domain.StateJoined {
		s.log.Debug().Str("conn_id", c.ConnID.String()).Msg("Dropping log from connection outside any room")
		return
	}
	if c.Room != "" && c.Room != conn.Room {
		s.log.Debug().
			Str("conn_id", c.ConnID.String()).
			Str("room", conn.Room.String()).
			Str("claimed_room", c.Room.String()).
			Msg("Log names another room, relaying to sender's room")
	}

	s.broadcast(conn.Room, c.ConnID, domain.BroadcastLog(c.Message))
}

func (s *RoomService) disconnect(c domain.Disconnect) {
	last, ok := s.registry.Unregister(c.ConnID)
	if !ok {
		return
	}

	l := s.log.With().Str("conn_id", c.ConnID.String()).Int("count", s.registry.Len()).Logger()
	if last.State != domain.StateJoined {
		l.Info().Msg("Client left without joining a room")
		return
	}

	l.Info().Str("room", last.Room.String()).Str("peer", last.Peer.String()).Msg("User disconnected from room")
	s.broadcast(last.Room, c.ConnID, domain.UserDisconnected(last.Peer))
}

// broadcast delivers evt to every member of room except from. Delivery is
// fire-and-forget; failed sends are dropped.
func (s *RoomService) broadcast(room domain.RoomID, from domain.ConnID, evt domain.Event) int {
	delivered := 0
	for _, c := range s.registry.Members(room, from) {
		if err := s.send(c, evt); err != nil {
			s.log.Debug().Err(err).Str("conn_id", c.ID().String()).Str("event", evt.Name).Msg("Dropping event for client")
			continue
		}
		delivered++
	}
	return delivered
}

// send isolates a panicking client so the rest of the room still gets evt.
func (s *RoomService) send(c port.Client, evt domain.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Str("conn_id", c.ID().String()).Msg("Recovered from panic in client send")
			err = fmt.Errorf("send panicked: %v", rec)
		}
	}()
	return c.Send(evt)
}

// closeAll closes every client concurrently; a stuck socket must not hold
// up the others.
func (s *RoomService) closeAll() {
	clients := s.registry.Clients()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Go(func() {
			if err := c.Close(); err != nil {
				s.log.Error().Err(err).Str("conn_id", c.ID().String()).Msg("Error closing client connection")
			}
		})
	}
	wg.Wait()

	for _, c := range clients {
		s.registry.Unregister(c.ID())
	}
}
