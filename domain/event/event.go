// Package event defines the frames pushed from the server to live connections.
// Every frame is {"type": ..., "data": ...}; identifiers and timestamps are strings
// so that clients never compare binary ids.
package event

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	OnlineUsersType Type = "getOnlineUsers"
	NewMessageType  Type = "newMessage"
	ChatDeletedType Type = "chatDeleted"
)

// ISO8601 is the layout produced by JavaScript's Date.toISOString once in UTC.
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// Envelope is the delivery-time form of a persisted message.
type Envelope struct {
	ID         string  `json:"id"`
	SenderID   string  `json:"senderId"`
	ReceiverID string  `json:"receiverId"`
	Text       string  `json:"text"`
	Image      *string `json:"image,omitempty"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

func NewEnvelope(m domain.Message) Envelope {
	return Envelope{
		ID:         m.ID.String(),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		Image:      m.Image,
		CreatedAt:  FormatTime(m.CreatedAt),
		UpdatedAt:  FormatTime(m.UpdatedAt),
	}
}

// Involves reports whether the envelope belongs to the a<->b conversation.
func (e Envelope) Involves(a, b string) bool {
	return (e.SenderID == a && e.ReceiverID == b) ||
		(e.SenderID == b && e.ReceiverID == a)
}

// ConversationDeleted tells both participants that their history was cleared.
type ConversationDeleted struct {
	DeletedBy string `json:"deletedBy"`
	ChatWith  string `json:"chatWith"`
	Timestamp string `json:"timestamp"`
}

func NewConversationDeleted(deletedBy, chatWith string, at time.Time) ConversationDeleted {
	return ConversationDeleted{
		DeletedBy: deletedBy,
		ChatWith:  chatWith,
		Timestamp: FormatTime(at),
	}
}

func NewMessage(env Envelope) Event {
	return Event{Type: NewMessageType, Data: env}
}

func ChatDeleted(d ConversationDeleted) Event {
	return Event{Type: ChatDeletedType, Data: d}
}

// OnlineUsers always carries a non-nil slice so the wire shows [] rather than null.
func OnlineUsers(userIDs []string) Event {
	if userIDs == nil {
		userIDs = []string{}
	}
	return Event{Type: OnlineUsersType, Data: userIDs}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(ISO8601)
}

type frame struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses a pushed frame and types its payload:
// []string, Envelope or ConversationDeleted.
func Decode(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Event{}, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	switch f.Type {
	case OnlineUsersType:
		var ids []string
		if err := json.Unmarshal(f.Data, &ids); err != nil {
			return Event{}, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
		}
		return OnlineUsers(ids), nil
	case NewMessageType:
		var env Envelope
		if err := json.Unmarshal(f.Data, &env); err != nil {
			return Event{}, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
		}
		return NewMessage(env), nil
	case ChatDeletedType:
		var d ConversationDeleted
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return Event{}, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
		}
		return ChatDeleted(d), nil
	default:
		return Event{}, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, f.Type)
	}
}
