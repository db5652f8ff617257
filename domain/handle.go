package domain

import (
	"time"

	"github.com/google/uuid"
)

// Handle identifies one live real-time connection.
// A reconnect always produces a new Handle.
type Handle struct {
	ID          uuid.UUID
	UserID      string
	ConnectedAt time.Time
}

func NewHandle(userID string) Handle {
	return Handle{
		ID:          uuid.New(),
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
	}
}

type SessionState int32

const (
	Connecting SessionState = iota
	Connected
	Disconnected
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
