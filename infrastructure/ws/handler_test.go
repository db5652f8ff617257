package ws

import (
	"chat-relay/auth"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type rosterFrame struct {
	Type event.Type `json:"type"`
	Data []string   `json:"data"`
}

var testOptions = Options{
	BufferSize:   8,
	PingInterval: time.Second,
	PongTimeout:  2 * time.Second,
	WriteTimeout: time.Second,
	MaxFrameSize: 1024,
}

func newTestServer(t *testing.T, opts Options) (string, *runtime.Registry, *mocks.MockIdentityProvider) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)

	registry := runtime.NewRegistry()
	fanout := runtime.NewFanout(log, registry, 100*time.Millisecond)
	broadcaster := runtime.NewBroadcaster(log, registry, fanout)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = broadcaster.Run(ctx) }()

	sessions := runtime.NewSessionManager(log, registry, broadcaster)
	identity := mocks.NewMockIdentityProvider(ctrl)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(log, sessions, []string{"http://allowed.test"}, opts)
	router.GET("/ws", auth.Middleware(identity), handler.Serve)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws", registry, identity
}

func TestHandler_Rejects_Missing_Credential(t *testing.T) {
	req := require.New(t)
	url, registry, _ := newTestServer(t, testOptions)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	req.Zero(registry.Stats().Connections)
}

func TestHandler_Rejects_Foreign_Origin(t *testing.T) {
	req := require.New(t)
	url, registry, identity := newTestServer(t, testOptions)
	identity.EXPECT().Validate("good").Return("alice", nil)

	header := http.Header{"Origin": {"http://evil.test"}}
	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=good", header)

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusForbidden, resp.StatusCode)
	req.Zero(registry.Stats().Connections)
}

func TestHandler_Session_Lifecycle(t *testing.T) {
	req := require.New(t)
	url, registry, identity := newTestServer(t, testOptions)
	identity.EXPECT().Validate("good").Return("alice", nil)

	// Given an authenticated client from an allowed origin
	header := http.Header{"Origin": {"http://allowed.test"}, "Authorization": {"Bearer good"}}
	client, _, err := websocket.DefaultDialer.Dial(url, header)
	req.NoError(err)

	// Then it receives a roster containing itself
	var frame rosterFrame
	req.NoError(client.SetReadDeadline(time.Now().Add(time.Second)))
	req.NoError(client.ReadJSON(&frame))
	req.Equal(event.OnlineUsersType, frame.Type)
	req.Equal([]string{"alice"}, frame.Data)
	req.Equal([]string{"alice"}, registry.SnapshotOnlineUserIDs())

	// When the client leaves
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	req.NoError(client.WriteMessage(websocket.CloseMessage, msg))
	_ = client.Close()

	// Then the user goes offline
	req.Eventually(func() bool {
		return registry.Stats().OnlineUsers == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHandler_Dead_Peer_Is_Dropped(t *testing.T) {
	req := require.New(t)
	opts := testOptions
	opts.PingInterval = 20 * time.Millisecond
	opts.PongTimeout = 80 * time.Millisecond
	url, registry, identity := newTestServer(t, opts)
	identity.EXPECT().Validate("good").Return("alice", nil)

	// Given a client that never reads, so never answers pings
	client, _, err := websocket.DefaultDialer.Dial(url+"?token=good", nil)
	req.NoError(err)
	defer client.Close()
	req.Eventually(func() bool { return registry.Stats().Connections == 1 }, time.Second, 5*time.Millisecond)

	// Then the read deadline expires and the session ends
	req.Eventually(func() bool {
		return registry.Stats().Connections == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_Server_Close_Sends_Close_Frame(t *testing.T) {
	req := require.New(t)
	url, registry, identity := newTestServer(t, testOptions)
	identity.EXPECT().Validate("good").Return("alice", nil)

	client, _, err := websocket.DefaultDialer.Dial(url+"?token=good", nil)
	req.NoError(err)
	defer client.Close()
	req.Eventually(func() bool { return len(registry.LookupLive("alice")) == 1 }, time.Second, 5*time.Millisecond)

	// When the server side closes the connection, as an eviction does
	registry.LookupLive("alice")[0].Close()

	// Then the client reads a normal close after any pending frame
	req.NoError(client.SetReadDeadline(time.Now().Add(time.Second)))
	for {
		if _, _, err = client.ReadMessage(); err != nil {
			break
		}
	}
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	req.Eventually(func() bool { return registry.Stats().Connections == 0 }, time.Second, 10*time.Millisecond)
}
