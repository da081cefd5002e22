package service

import (
	"errors"
	"sync"

	"github.com/Wyydra/huddle/internal/core/domain"
)

var errFakeClosed = errors.New("fake client closed")

type fakeClient struct {
	id domain.ConnID

	mu     sync.Mutex
	events []domain.Event
	closed bool
	fail   bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{id: domain.NewConnID()}
}

func (c *fakeClient) ID() domain.ConnID {
	return c.id
}

func (c *fakeClient) Send(evt domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.fail {
		return errFakeClosed
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) Events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.events...)
}

func (c *fakeClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
