package test

import (
	"chat-relay/client"
	"chat-relay/domain/event"
	"chat-relay/internal"
	"context"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const (
	password = "Sup3r-Secret!"
	waitFor  = 2 * time.Second
	tick     = 10 * time.Millisecond
)

type participant struct {
	id         string
	api        *client.API
	reconciler *client.Reconciler
	live       *client.Live
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	log := logs.GetLoggerFromLevel(slog.LevelInfo)

	config := internal.Config{
		BadgerFilepath:       filepath.Join(dir, "badger"),
		BlugeFilepath:        filepath.Join(dir, "bluge"),
		MediaDir:             filepath.Join(dir, "media"),
		MediaBaseURL:         "/media",
		MaxUploadBytes:       1 << 20,
		JWTSecret:            "0123456789abcdef0123456789abcdef",
		AuthTokenDuration:    time.Hour,
		AllowedOrigins:       "*",
		ConnectionBufferSize: 16,
		PushTimeout:          100 * time.Millisecond,
		PingInterval:         time.Second,
		PongTimeout:          3 * time.Second,
		WriteTimeout:         time.Second,
		MaxFrameSize:         1024,
		RestartInterval:      10 * time.Millisecond,
		StatsInterval:        time.Minute,
		CharReplacement:      "*",
		MaxTextLength:        500,
		SearchLimit:          10,
	}

	ctx, cancel := context.WithCancel(context.Background())
	app, err := internal.NewApp(ctx, log, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	t.Cleanup(cancel)
	go app.Run(ctx)

	server := httptest.NewServer(app.Handler)
	t.Cleanup(server.Close)
	return server
}

func join(t *testing.T, server *httptest.Server, name string) *participant {
	t.Helper()
	api := client.NewAPI(server.URL, server.Client())
	user, err := api.Signup(context.Background(), name, strings.ToLower(name)+"@example.com", password)
	require.NoError(t, err)
	return &participant{id: user.ID, api: api, reconciler: client.NewReconciler(user.ID)}
}

// connect opens the real-time channel and feeds the participant's reconciler.
func (p *participant) connect(t *testing.T, server *httptest.Server) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	live, err := client.Dial(context.Background(), logs.GetLoggerFromLevel(slog.LevelInfo), wsURL, p.api.Token())
	require.NoError(t, err)
	p.live = live
	go func() { _ = live.Run(context.Background(), p.reconciler, nil) }()
	t.Cleanup(func() { _ = live.Close() })
}

func sorted(ids ...string) []string {
	sort.Strings(ids)
	return ids
}

func requireRoster(t *testing.T, p *participant, expected ...string) {
	t.Helper()
	want := sorted(expected...)
	require.Eventually(t, func() bool {
		got := p.reconciler.Online()
		return len(got) == len(want) && strings.Join(got, ",") == strings.Join(want, ",")
	}, waitFor, tick, "roster should become %v, got %v", want, p.reconciler.Online())
}

func ids(envs []event.Envelope) []string {
	res := make([]string, 0, len(envs))
	for _, e := range envs {
		res = append(res, e.ID)
	}
	return res
}

func Test_Scenario_Presence_Delivery_Deletion(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := startServer(t)
	a := join(t, server, "Alice")
	b := join(t, server, "Bob")
	a.reconciler.Open(b.id, nil)
	b.reconciler.Open(a.id, nil)

	// A connects: roster ["A"]
	a.connect(t, server)
	requireRoster(t, a, a.id)

	// B connects: roster ["A","B"] on both sides
	b.connect(t, server)
	requireRoster(t, a, a.id, b.id)
	requireRoster(t, b, a.id, b.id)

	// A sends to B: B's list grows from [] to [msg1]
	req.Empty(b.reconciler.Messages())
	msg1, err := a.api.Send(ctx, b.id, "hello bob", "")
	req.NoError(err)
	a.reconciler.Sent(msg1)
	req.Eventually(func() bool {
		return len(b.reconciler.Messages()) == 1
	}, waitFor, tick)
	req.Equal([]string{msg1.ID}, ids(b.reconciler.Messages()))

	// The echo pushed back to A is deduplicated
	time.Sleep(50 * time.Millisecond)
	req.Equal([]string{msg1.ID}, ids(a.reconciler.Messages()))

	// B disconnects: roster ["A"]
	req.NoError(b.live.Close())
	requireRoster(t, a, a.id)

	// A deletes the conversation: A's own list clears
	deleted, err := a.api.DeleteConversation(ctx, b.id)
	req.NoError(err)
	req.Equal(1, deleted)
	req.Eventually(func() bool {
		return len(a.reconciler.Messages()) == 0
	}, waitFor, tick)

	// B got no live event but a re-fetch returns an empty history
	req.Equal([]string{msg1.ID}, ids(b.reconciler.Messages()))
	history, err := b.api.Conversation(ctx, a.id)
	req.NoError(err)
	req.Empty(history)
}

func Test_Scenario_Offline_Receiver_Catches_Up(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := startServer(t)
	a := join(t, server, "Alice")
	b := join(t, server, "Bob")

	// Given B offline while A sends
	sent, err := a.api.Send(ctx, b.id, "are you there?", "")
	req.NoError(err)

	// When B comes back and opens the conversation
	history, err := b.api.Conversation(ctx, a.id)
	req.NoError(err)
	b.reconciler.Open(a.id, history)

	// Then the message is there exactly once
	req.Equal([]string{sent.ID}, ids(b.reconciler.Messages()))
}

func Test_Scenario_Second_Tab_Keeps_User_Online(t *testing.T) {
	server := startServer(t)
	a := join(t, server, "Alice")
	b := join(t, server, "Bob")
	b.connect(t, server)

	// Given A connected from two tabs sharing one session
	tab1 := &participant{id: a.id, api: a.api, reconciler: client.NewReconciler(a.id)}
	tab2 := &participant{id: a.id, api: a.api, reconciler: client.NewReconciler(a.id)}
	tab1.connect(t, server)
	tab2.connect(t, server)
	requireRoster(t, b, a.id, b.id)

	// When one tab closes, A stays online
	require.NoError(t, tab1.live.Close())
	time.Sleep(100 * time.Millisecond)
	requireRoster(t, b, a.id, b.id)

	// When the last one closes, A goes offline
	require.NoError(t, tab2.live.Close())
	requireRoster(t, b, b.id)
}

func Test_Scenario_Both_Tabs_Receive_Message(t *testing.T) {
	req := require.New(t)
	server := startServer(t)
	a := join(t, server, "Alice")
	b := join(t, server, "Bob")

	tab1 := &participant{id: b.id, api: b.api, reconciler: client.NewReconciler(b.id)}
	tab2 := &participant{id: b.id, api: b.api, reconciler: client.NewReconciler(b.id)}
	tab1.reconciler.Open(a.id, nil)
	tab2.reconciler.Open(a.id, nil)
	tab1.connect(t, server)
	tab2.connect(t, server)
	requireRoster(t, tab1, b.id)
	requireRoster(t, tab2, b.id)

	sent, err := a.api.Send(context.Background(), b.id, "ping both tabs", "")
	req.NoError(err)

	for _, tab := range []*participant{tab1, tab2} {
		req.Eventually(func() bool {
			got := tab.reconciler.Messages()
			return len(got) == 1 && got[0].ID == sent.ID
		}, waitFor, tick)
	}
}
