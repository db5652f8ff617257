package client

import (
	"chat-relay/domain/event"
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Live is the client end of the real-time channel.
type Live struct {
	log  *slog.Logger
	conn *websocket.Conn

	// closed when the ctx watcher of the last Run is gone
	watcherDone chan struct{}
}

// Dial opens the channel with the session token sent as a bearer header.
func Dial(ctx context.Context, log *slog.Logger, wsURL, token string) (*Live, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}
	return &Live{log: log, conn: conn}, nil
}

// Run applies every pushed frame to the reconciler until the channel closes
// or ctx is canceled. onApplied, when set, sees each frame with its outcome.
func (l *Live) Run(ctx context.Context, r *Reconciler, onApplied func(event.Event, Outcome)) error {
	done := make(chan struct{})
	defer close(done)
	l.watcherDone = make(chan struct{})
	go func(watcherDone chan struct{}) {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			_ = l.conn.Close()
		case <-done:
		}
	}(l.watcherDone)

	for {
		_, raw, err := l.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		evt, err := event.Decode(raw)
		if err != nil {
			l.log.Warn("Skipping unreadable frame", "error", err)
			continue
		}
		outcome := r.Apply(evt)
		if onApplied != nil {
			onApplied(evt, outcome)
		}
	}
}

// Close sends a normal close frame then drops the connection.
func (l *Live) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := l.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !stderrors.Is(err, websocket.ErrCloseSent) {
		l.log.Debug("Close frame not sent", "error", err)
	}
	return l.conn.Close()
}
