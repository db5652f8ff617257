package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[uuid.UUID]contract.Connection

// Registry maps each online user to the set of its live connections.
// A user key exists only while it owns at least one connection, which is
// what makes a user "online".
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Set        // map user -> live connections
	owners map[uuid.UUID]string // map handle -> owning user
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]Set),
		owners: make(map[uuid.UUID]string),
	}
}

// Register adds the connection under userID.
// Registering a handle twice is a no-op. A handle already owned by another
// user is moved, so a handle never appears under two users.
func (r *Registry) Register(userID string, conn contract.Connection) {
	handleID := conn.Handle().ID

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[handleID]; ok {
		if owner == userID {
			return
		}
		r.removeLocked(owner, handleID)
	}

	if _, ok := r.byUser[userID]; !ok {
		r.byUser[userID] = make(Set)
	}
	r.byUser[userID][handleID] = conn
	r.owners[handleID] = userID
}

// Unregister removes the handle from whichever user owns it.
// Unknown handles are ignored.
func (r *Registry) Unregister(handle domain.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[handle.ID]
	if !ok {
		return
	}
	r.removeLocked(owner, handle.ID)
}

func (r *Registry) removeLocked(userID string, handleID uuid.UUID) {
	delete(r.owners, handleID)
	if conns, ok := r.byUser[userID]; ok {
		delete(conns, handleID)

		// Last connection gone: the user goes offline
		if len(conns) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// LookupLive returns a copy of the user's live connections, nil when offline.
func (r *Registry) LookupLive(userID string) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	return lo.Values(conns)
}

// SnapshotOnlineUserIDs returns the distinct online users, sorted.
func (r *Registry) SnapshotOnlineUserIDs() []string {
	r.mu.RLock()
	ids := lo.Keys(r.byUser)
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Connections returns every live connection, whatever its user.
func (r *Registry) Connections() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]contract.Connection, 0, len(r.owners))
	for _, conns := range r.byUser {
		for _, conn := range conns {
			res = append(res, conn)
		}
	}
	return res
}

func (r *Registry) Stats() contract.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return contract.RegistryStats{
		OnlineUsers: len(r.byUser),
		Connections: len(r.owners),
	}
}
