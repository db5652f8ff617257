package workers

import (
	"chat-relay/contract"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSelfStats(t *testing.T) {
	req := require.New(t)

	stats, err := SelfStats()
	req.NoError(err)
	req.Equal(int32(os.Getpid()), stats.PID)
	req.Positive(stats.RSSBytes)
	req.Positive(stats.Goroutines)
}

func TestHeartbeatWorker_Reads_Registry_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)

	// Given a registry polled on every beat
	beats := make(chan struct{}, 10)
	registry.EXPECT().Stats().DoAndReturn(func() contract.RegistryStats {
		select {
		case beats <- struct{}{}:
		default:
		}
		return contract.RegistryStats{OnlineUsers: 2, Connections: 3}
	}).MinTimes(1)

	worker := NewHeartbeatWorker(log, registry, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// When at least one beat happened and the context is cancelled
	<-beats
	cancel()

	// Then the worker returns the context error
	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("heartbeat worker should stop on cancel")
	}
}
