package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var _ contract.Connection = (*Conn)(nil)

type Options struct {
	BufferSize   int
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration
	MaxFrameSize int64
}

// Conn is one upgraded WebSocket.
// Frames are queued on a bounded channel and written by a single write pump,
// which keeps pushes FIFO and never lets a slow peer block a producer.
type Conn struct {
	log    *slog.Logger
	ws     *websocket.Conn
	handle domain.Handle
	opts   Options

	send      chan event.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(log *slog.Logger, ws *websocket.Conn, handle domain.Handle, opts Options) *Conn {
	return &Conn{
		log:    log,
		ws:     ws,
		handle: handle,
		opts:   opts,
		send:   make(chan event.Event, opts.BufferSize),
		done:   make(chan struct{}),
	}
}

func (c *Conn) Handle() domain.Handle {
	return c.handle
}

// Push queues the event. It waits for room in the buffer until ctx expires,
// then gives up with ErrBufferFull.
func (c *Conn) Push(ctx context.Context, e event.Event) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}

	// Fast path, also taken when ctx is already expired but room is left
	select {
	case c.send <- e:
		return nil
	default:
	}

	select {
	case c.send <- e:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", errors.ErrBufferFull, ctx.Err())
	}
}

// Close stops both pumps. Queued frames not yet written are dropped.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Serve runs the pumps and blocks until the peer is gone or Close was called.
func (c *Conn) Serve() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	c.readPump()
	c.Close()
	<-writerDone
	_ = c.ws.Close()
}

// readPump discards inbound frames: clients talk to the server over REST.
// It only exists to process control frames and detect a dead peer.
func (c *Conn) readPump() {
	c.ws.SetReadLimit(c.opts.MaxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Connection read failed", "handle_id", c.handle.ID, "error", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		// Unblocks the read pump whatever made the writer stop
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
			return
		case e := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteJSON(e); err != nil {
				c.log.Debug("Connection write failed", "handle_id", c.handle.ID, "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.log.Debug("Connection ping failed", "handle_id", c.handle.ID, "error", err)
				c.Close()
				return
			}
		}
	}
}
