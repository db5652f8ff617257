package runtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_One_User_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("alice")

	// Given nobody is connected
	req.Empty(registry.SnapshotOnlineUserIDs())

	// When a user connects
	registry.Register("alice", conn)

	// Then the user is online with exactly one connection
	req.Equal([]string{"alice"}, registry.SnapshotOnlineUserIDs())
	req.Len(registry.LookupLive("alice"), 1)
	req.Equal(conn.Handle(), registry.LookupLive("alice")[0].Handle())
}

func TestRegistry_Register_Same_Handle_Twice_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("alice")

	// When the same handle is registered twice
	registry.Register("alice", conn)
	registry.Register("alice", conn)

	// Then it is only counted once
	req.Len(registry.LookupLive("alice"), 1)
	req.Equal(1, registry.Stats().Connections)
}

func TestRegistry_Register_Moves_Handle_To_New_Owner(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("alice")

	// Given a handle owned by alice
	registry.Register("alice", conn)

	// When the same handle is registered for bob
	registry.Register("bob", conn)

	// Then the handle belongs to bob only and alice is offline
	req.Empty(registry.LookupLive("alice"))
	req.Len(registry.LookupLive("bob"), 1)
	req.Equal([]string{"bob"}, registry.SnapshotOnlineUserIDs())
}

func TestRegistry_Multiple_Connections_Same_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	tab1 := newFakeConn("alice")
	tab2 := newFakeConn("alice")

	// Given alice has two tabs open
	registry.Register("alice", tab1)
	registry.Register("alice", tab2)
	req.Len(registry.LookupLive("alice"), 2)
	req.Equal([]string{"alice"}, registry.SnapshotOnlineUserIDs())

	// When one tab closes
	registry.Unregister(tab1.Handle())

	// Then alice stays online through the other tab
	req.Equal([]string{"alice"}, registry.SnapshotOnlineUserIDs())
	req.Len(registry.LookupLive("alice"), 1)
	req.Equal(tab2.Handle(), registry.LookupLive("alice")[0].Handle())
}

func TestRegistry_Unregister_Last_Connection_Removes_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("alice")

	// Given alice is connected
	registry.Register("alice", conn)

	// When her only connection is gone
	registry.Unregister(conn.Handle())

	// Then she is offline and no empty entry is left behind
	req.Empty(registry.SnapshotOnlineUserIDs())
	req.Nil(registry.LookupLive("alice"))
	req.Empty(registry.byUser)
	req.Empty(registry.owners)
}

func TestRegistry_Unregister_Unknown_Handle_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("alice")
	registry.Register("alice", conn)

	// When an unknown handle is removed, twice
	stranger := newFakeConn("bob")
	registry.Unregister(stranger.Handle())
	registry.Unregister(stranger.Handle())

	// And an already removed handle is removed again
	registry.Unregister(conn.Handle())
	registry.Unregister(conn.Handle())

	// Then nothing breaks
	req.Empty(registry.SnapshotOnlineUserIDs())
	req.Equal(0, registry.Stats().Connections)
}

func TestRegistry_Snapshot_Is_Sorted_And_Distinct(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Register("carol", newFakeConn("carol"))
	registry.Register("alice", newFakeConn("alice"))
	registry.Register("bob", newFakeConn("bob"))
	registry.Register("alice", newFakeConn("alice"))

	req.Equal([]string{"alice", "bob", "carol"}, registry.SnapshotOnlineUserIDs())
	req.Len(registry.Connections(), 4)
	req.Equal(3, registry.Stats().OnlineUsers)
	req.Equal(4, registry.Stats().Connections)
}

func TestRegistry_LookupLive_Returns_A_Copy(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("alice", newFakeConn("alice"))

	conns := registry.LookupLive("alice")
	conns[0] = nil

	req.NotNil(registry.LookupLive("alice")[0])
}

func TestRegistry_Concurrent_Register_Unregister_Converges(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const users = 50
	const handles = 1000

	conns := make([]*fakeConn, handles)
	for i := range conns {
		conns[i] = newFakeConn(fmt.Sprintf("user-%02d", i%users))
	}

	// When every handle is registered then unregistered concurrently
	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Register(conn.Handle().UserID, conn)
			_ = registry.SnapshotOnlineUserIDs()
			_ = registry.LookupLive(conn.Handle().UserID)
			registry.Unregister(conn.Handle())
		}()
	}
	wg.Wait()

	// Then the registry ends empty
	req.Empty(registry.SnapshotOnlineUserIDs())
	req.Equal(0, registry.Stats().Connections)
}

func TestRegistry_Concurrent_Register_Keeps_Every_Handle(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	const users = 50
	const handles = 1000

	var wg sync.WaitGroup
	for i := 0; i < handles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := fmt.Sprintf("user-%02d", i%users)
			registry.Register(userID, newFakeConn(userID))
		}()
	}
	wg.Wait()

	req.Len(registry.SnapshotOnlineUserIDs(), users)
	req.Equal(handles, registry.Stats().Connections)
	for i := 0; i < users; i++ {
		req.Len(registry.LookupLive(fmt.Sprintf("user-%02d", i)), handles/users)
	}
}
