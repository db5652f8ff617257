package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"sync"
	"sync/atomic"
)

// fakeConn records pushed events in memory.
type fakeConn struct {
	handle domain.Handle
	fail   error

	mu     sync.Mutex
	events []event.Event
	closed atomic.Bool
}

func newFakeConn(userID string) *fakeConn {
	return &fakeConn{handle: domain.NewHandle(userID)}
}

func (c *fakeConn) Handle() domain.Handle {
	return c.handle
}

func (c *fakeConn) Push(_ context.Context, e event.Event) error {
	if c.fail != nil {
		return c.fail
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *fakeConn) Close() {
	c.closed.Store(true)
}

func (c *fakeConn) received() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

func (c *fakeConn) receivedOfType(t event.Type) []event.Event {
	var res []event.Event
	for _, e := range c.received() {
		if e.Type == t {
			res = append(res, e)
		}
	}
	return res
}

// stuckConn never accepts an event, Push waits until ctx is done.
type stuckConn struct {
	handle domain.Handle
	closed atomic.Bool
}

func newStuckConn(userID string) *stuckConn {
	return &stuckConn{handle: domain.NewHandle(userID)}
}

func (c *stuckConn) Handle() domain.Handle {
	return c.handle
}

func (c *stuckConn) Push(ctx context.Context, _ event.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *stuckConn) Close() {
	c.closed.Store(true)
}
