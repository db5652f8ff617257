package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"sync/atomic"
)

// Session ties one live connection to its authenticated user for the
// duration of the connection.
type Session struct {
	conn  contract.Connection
	state atomic.Int32
}

func (s *Session) Handle() domain.Handle {
	return s.conn.Handle()
}

func (s *Session) UserID() string {
	return s.conn.Handle().UserID
}

func (s *Session) State() domain.SessionState {
	return domain.SessionState(s.state.Load())
}

// SessionManager binds connections to the registry and keeps presence fresh.
// The user id is the one proven by the identity provider, never a value the
// client asserted about itself.
type SessionManager struct {
	log      *slog.Logger
	registry contract.IRegistry
	presence contract.PresenceNotifier
}

func NewSessionManager(log *slog.Logger, registry contract.IRegistry, presence contract.PresenceNotifier) *SessionManager {
	return &SessionManager{log: log, registry: registry, presence: presence}
}

// Open registers the connection and announces the new roster.
// A connection without trusted identity is refused and never registered.
func (m *SessionManager) Open(userID string, conn contract.Connection) (*Session, error) {
	s := &Session{conn: conn}
	s.state.Store(int32(domain.Connecting))

	if userID == "" || conn.Handle().UserID != userID {
		s.state.Store(int32(domain.Disconnected))
		return nil, errors.ErrUntrustedIdentity
	}

	m.registry.Register(userID, conn)
	s.state.Store(int32(domain.Connected))
	m.presence.Notify()

	m.log.Info("Session opened", "user_id", userID, "handle_id", conn.Handle().ID)
	return s, nil
}

// Close runs at most once per session whatever the disconnect cause
// (client close, network drop, failed push).
func (m *SessionManager) Close(s *Session) {
	if s == nil {
		return
	}
	if !s.state.CompareAndSwap(int32(domain.Connected), int32(domain.Disconnected)) {
		return
	}

	m.registry.Unregister(s.Handle())
	s.conn.Close()
	m.presence.Notify()

	m.log.Info("Session closed", "user_id", s.UserID(), "handle_id", s.Handle().ID)
}
