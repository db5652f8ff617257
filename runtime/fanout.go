package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// Fanout pushes one event to a set of live connections.
//
// Every connection is pushed in its own goroutine and Deliver waits for all
// of them, so a single connection still observes events in the order they
// were issued. Each push is bounded by pushTimeout; a connection that cannot
// take the event in time is unregistered and closed while the others receive
// it. Fanout never reports failures to its caller.
//
// Fanout is safe for concurrent use by multiple goroutines.
type Fanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	pushTimeout time.Duration
}

func NewFanout(log *slog.Logger, registry contract.IRegistry, pushTimeout time.Duration) *Fanout {
	return &Fanout{log: log, registry: registry, pushTimeout: pushTimeout}
}

// Deliver returns the number of connections that accepted the event.
func (f *Fanout) Deliver(conns []contract.Connection, evt event.Event) int {
	var delivered atomic.Int32
	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn contract.Connection) {
			defer wg.Done()
			if err := f.push(conn, evt); err != nil {
				f.evict(conn, evt, err)
				return
			}
			delivered.Add(1)
		}(conn)
	}
	wg.Wait()
	return int(delivered.Load())
}

func (f *Fanout) push(conn contract.Connection, evt event.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.pushTimeout)
	defer cancel()
	return conn.Push(ctx, evt)
}

// evict drops a connection that failed a push. The transport notices the
// close and runs the regular disconnect path, which refreshes presence.
func (f *Fanout) evict(conn contract.Connection, evt event.Event, err error) {
	handle := conn.Handle()
	f.log.Warn("Dropping connection after failed push",
		"user_id", handle.UserID,
		"handle_id", handle.ID,
		"event", evt.Type,
		"error", err)
	f.registry.Unregister(handle)
	conn.Close()
}

// unique removes connections listed more than once, e.g. when a user
// writes to himself and appears as both sender and receiver.
func unique(lists ...[]contract.Connection) []contract.Connection {
	return lo.UniqBy(lo.Flatten(lists), func(c contract.Connection) string {
		return c.Handle().ID.String()
	})
}
