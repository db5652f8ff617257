package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestFanout_Push_Timeout_Evicts_Connection(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	slow := mocks.NewMockConnection(ctrl)
	handle := domain.NewHandle("bob")

	pushTimeout := 20 * time.Millisecond
	fanout := NewFanout(log, mockRegistry, pushTimeout)

	// Given a connection that never drains
	slow.EXPECT().Handle().Return(handle).AnyTimes()
	slow.EXPECT().Push(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, e event.Event) error {
			<-ctx.Done() // Waiting for timeout to trigger cancellation
			return ctx.Err()
		}).
		Times(1)
	// Then it is unregistered and closed
	mockRegistry.EXPECT().Unregister(handle).Times(1)
	slow.EXPECT().Close().Times(1)

	start := time.Now()
	delivered := fanout.Deliver([]contract.Connection{slow}, event.OnlineUsers(nil))

	req.Equal(0, delivered)
	req.Less(time.Since(start), time.Second)
}

func TestFanout_Deliver_Counts_Successes(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	fanout := NewFanout(log, registry, 50*time.Millisecond)

	a, b := newFakeConn("alice"), newFakeConn("bob")
	delivered := fanout.Deliver([]contract.Connection{a, b}, event.OnlineUsers([]string{"alice", "bob"}))

	req.Equal(2, delivered)
	req.Len(a.received(), 1)
	req.Len(b.received(), 1)
}

func TestFanout_Stuck_Connections_Do_Not_Delay_Healthy_One(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	pushTimeout := 200 * time.Millisecond
	fanout := NewFanout(log, registry, pushTimeout)

	// Given five connections that never drain, listed before a healthy one
	var conns []contract.Connection
	for i := 0; i < 5; i++ {
		stuck := newStuckConn("bob")
		registry.Register("bob", stuck)
		conns = append(conns, stuck)
	}
	healthy := newFakeConn("alice")
	registry.Register("alice", healthy)
	conns = append(conns, healthy)

	// When one event is delivered to all of them
	start := time.Now()
	delivered := fanout.Deliver(conns, event.OnlineUsers([]string{"alice", "bob"}))

	// Then the whole delivery costs about one push timeout
	req.Less(time.Since(start), 2*pushTimeout)
	req.Equal(1, delivered)
	req.Len(healthy.received(), 1)

	// And every stuck connection is evicted
	req.Equal([]string{"alice"}, registry.SnapshotOnlineUserIDs())
	for _, c := range conns[:5] {
		req.True(c.(*stuckConn).closed.Load())
	}
}

func TestUnique_Removes_Duplicated_Handles(t *testing.T) {
	req := require.New(t)
	a, b := newFakeConn("alice"), newFakeConn("bob")

	got := unique([]contract.Connection{a, b}, []contract.Connection{a})

	req.Len(got, 2)
}
