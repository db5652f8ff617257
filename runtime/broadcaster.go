package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
)

var _ contract.PresenceNotifier = (*Broadcaster)(nil)

// Broadcaster pushes the full online roster to every live connection after
// each registry change.
//
// Notify only marks the roster as dirty; Run drains the mark and takes the
// snapshot when it actually broadcasts. Several changes arriving while a
// broadcast is in flight therefore collapse into one, and the last frame a
// connection receives always matches the registry state at the time it was
// pushed.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
	fanout   *Fanout
	pending  chan struct{}
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, fanout *Fanout) *Broadcaster {
	return &Broadcaster{
		log:      log,
		registry: registry,
		fanout:   fanout,
		pending:  make(chan struct{}, 1),
	}
}

// Notify never blocks.
func (b *Broadcaster) Notify() {
	select {
	case b.pending <- struct{}{}:
	default:
		// A broadcast is already scheduled and will read a fresh snapshot
	}
}

// Run is supervised as a worker.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.log.Info("Starting presence broadcaster")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.pending:
			b.BroadcastRoster()
		}
	}
}

// BroadcastRoster sends the current snapshot synchronously.
func (b *Broadcaster) BroadcastRoster() {
	ids := b.registry.SnapshotOnlineUserIDs()
	conns := b.registry.Connections()
	delivered := b.fanout.Deliver(conns, event.OnlineUsers(ids))
	b.log.Debug("Online roster broadcast",
		"online_users", len(ids), "connections", len(conns), "delivered", delivered)
}
