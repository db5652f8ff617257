// Package client holds the client side of the live channel: the state a
// connected client keeps in sync with pushed frames, plus thin REST and
// WebSocket helpers used by the terminal client and the end-to-end tests.
package client

import (
	"chat-relay/domain/event"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Outcome tells the caller what an applied frame changed locally.
type Outcome int

const (
	Ignored Outcome = iota
	Appended
	Cleared
	ClearedByCounterpart
	RosterReplaced
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Appended:
		return "appended"
	case Cleared:
		return "cleared"
	case ClearedByCounterpart:
		return "cleared_by_counterpart"
	case RosterReplaced:
		return "roster_replaced"
	default:
		return "unknown"
	}
}

// Reconciler merges pushed frames into the local view of one client.
//
// Delivery is at-least-once and pushes may race with the pull of the
// history, so every message id is applied at most once. Messages outside
// the open conversation are dropped: they will come back with the history
// when that conversation is opened.
type Reconciler struct {
	mu       sync.RWMutex
	self     string
	selected string
	messages []event.Envelope
	seen     map[string]struct{}
	online   map[string]struct{}
}

func NewReconciler(self string) *Reconciler {
	return &Reconciler{
		self:   self,
		seen:   make(map[string]struct{}),
		online: make(map[string]struct{}),
	}
}

// Open switches to the conversation with counterpart, seeded with the
// pulled history.
func (r *Reconciler) Open(counterpart string, history []event.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.selected = counterpart
	r.messages = nil
	r.seen = make(map[string]struct{})
	for _, env := range history {
		r.appendLocked(env)
	}
}

// Deselect leaves the open conversation.
func (r *Reconciler) Deselect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = ""
	r.messages = nil
	r.seen = make(map[string]struct{})
}

func (r *Reconciler) Selected() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// Apply dispatches a decoded frame to the matching handler.
func (r *Reconciler) Apply(evt event.Event) Outcome {
	switch data := evt.Data.(type) {
	case event.Envelope:
		if r.ApplyEnvelope(data) {
			return Appended
		}
	case event.ConversationDeleted:
		cleared, byCounterpart := r.ApplyDeletion(data)
		switch {
		case cleared && byCounterpart:
			return ClearedByCounterpart
		case cleared:
			return Cleared
		}
	case []string:
		r.ApplyRoster(data)
		return RosterReplaced
	}
	return Ignored
}

// ApplyEnvelope appends a pushed message that belongs to the open
// conversation and was not seen yet.
func (r *Reconciler) ApplyEnvelope(env event.Envelope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selected == "" || !env.Involves(r.self, r.selected) {
		return false
	}
	return r.appendLocked(env)
}

// Sent records the reply of our own send request. The echo pushed later
// carries the same id and is dropped.
func (r *Reconciler) Sent(env event.Envelope) bool {
	return r.ApplyEnvelope(env)
}

// ApplyDeletion clears the local list when the deleted conversation is the
// open one, whoever deleted it. byCounterpart reports that the other side
// did it, so the caller can tell the user.
func (r *Reconciler) ApplyDeletion(d event.ConversationDeleted) (cleared bool, byCounterpart bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selected == "" {
		return false, false
	}
	ours := (d.DeletedBy == r.self && d.ChatWith == r.selected) ||
		(d.DeletedBy == r.selected && d.ChatWith == r.self)
	if !ours {
		return false, false
	}

	r.messages = nil
	r.seen = make(map[string]struct{})
	return true, d.DeletedBy == r.selected && d.DeletedBy != r.self
}

// ApplyRoster replaces the online set, never merges.
func (r *Reconciler) ApplyRoster(userIDs []string) {
	online := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		online[id] = struct{}{}
	}

	r.mu.Lock()
	r.online = online
	r.mu.Unlock()
}

// Messages returns a copy of the open conversation, in arrival order.
func (r *Reconciler) Messages() []event.Envelope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]event.Envelope(nil), r.messages...)
}

func (r *Reconciler) Online() []string {
	r.mu.RLock()
	ids := lo.Keys(r.online)
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (r *Reconciler) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.online[userID]
	return ok
}

func (r *Reconciler) appendLocked(env event.Envelope) bool {
	if _, dup := r.seen[env.ID]; dup {
		return false
	}
	r.seen[env.ID] = struct{}{}
	r.messages = append(r.messages, env)
	return true
}
