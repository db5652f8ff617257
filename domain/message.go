// Package domain contains core concepts of the chat system.
// This file defines persisted messages and the conversation they belong to.
// Messages are immutable once the Message Store returned them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a durable record between exactly two users.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	Text       string
	Image      *string // URL returned by the media store, nil when text only
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Involves reports whether the message was exchanged between a and b, in either direction.
func (m Message) Involves(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) ||
		(m.SenderID == b && m.ReceiverID == a)
}

// Conversation is the unordered pair of users sharing a message history.
type Conversation struct {
	First  string
	Second string
}

// NewConversation normalizes the pair so that {a,b} and {b,a} give the same value.
func NewConversation(a, b string) Conversation {
	if b < a {
		a, b = b, a
	}
	return Conversation{First: a, Second: b}
}

// Key is the canonical string form, used as storage prefix and search keyword.
func (c Conversation) Key() string {
	return c.First + ":" + c.Second
}
