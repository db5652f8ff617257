package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"log/slog"
)

var _ contract.IDispatcher = (*Dispatcher)(nil)

// Dispatcher delivers already persisted state to the live connections of the
// participants. It is only called once the Message Store succeeded, and it
// never queues for offline users: they will pull the history later.
type Dispatcher struct {
	log          *slog.Logger
	registry     contract.IRegistry
	fanout       *Fanout
	broadcastAll bool
}

// NewDispatcher builds a targeted dispatcher. With broadcastAll, every
// message is also pushed to every live connection, relying on client-side
// filtering and dedup.
func NewDispatcher(log *slog.Logger, registry contract.IRegistry, fanout *Fanout, broadcastAll bool) *Dispatcher {
	return &Dispatcher{log: log, registry: registry, fanout: fanout, broadcastAll: broadcastAll}
}

// Dispatch pushes a new message to sender and receiver connections.
// Delivery is at-least-once per connection.
func (d *Dispatcher) Dispatch(env event.Envelope) {
	evt := event.NewMessage(env)

	if d.broadcastAll {
		d.fanout.Deliver(d.registry.Connections(), evt)
	}

	conns := unique(
		d.registry.LookupLive(env.SenderID),
		d.registry.LookupLive(env.ReceiverID),
	)
	if len(conns) == 0 {
		d.log.Debug("No live connection for message participants",
			"message_id", env.ID, "sender_id", env.SenderID, "receiver_id", env.ReceiverID)
		return
	}
	delivered := d.fanout.Deliver(conns, evt)
	d.log.Debug("Message dispatched",
		"message_id", env.ID, "connections", len(conns), "delivered", delivered)
}

// DispatchDeletion tells both participants that the conversation was cleared.
// Best effort: a missed event is healed by the next history fetch.
func (d *Dispatcher) DispatchDeletion(evt event.ConversationDeleted) {
	conns := unique(
		d.registry.LookupLive(evt.DeletedBy),
		d.registry.LookupLive(evt.ChatWith),
	)
	if len(conns) == 0 {
		return
	}
	delivered := d.fanout.Deliver(conns, event.ChatDeleted(evt))
	d.log.Debug("Conversation deletion dispatched",
		"deleted_by", evt.DeletedBy, "chat_with", evt.ChatWith, "delivered", delivered)
}
