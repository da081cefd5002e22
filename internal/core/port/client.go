package port

import "github.com/Wyydra/huddle/internal/core/domain"

// Client is one live connection as seen by the coordinator. Send must not
// block on the network.
type Client interface {
	ID() domain.ConnID
	Send(evt domain.Event) error
	Close() error
}
