package ws

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/runtime"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Handler upgrades authenticated requests and keeps one session per socket.
// It must be mounted behind auth.Middleware, which provides the trusted user id.
type Handler struct {
	log      *slog.Logger
	sessions *runtime.SessionManager
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, sessions *runtime.SessionManager, origins []string, opts Options) *Handler {
	return &Handler{
		log:      log,
		sessions: sessions,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
	}
}

// checkOrigin accepts requests without Origin (non-browser clients),
// any origin when "*" is listed, and the listed origins otherwise.
func checkOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return lo.Contains(origins, "*") || lo.Contains(origins, origin)
	}
}

func (h *Handler) Serve(c *gin.Context) {
	userID := auth.UserID(c)

	socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already replied to the client
		h.log.Debug("WebSocket upgrade refused", "user_id", userID, "error", err)
		return
	}

	conn := NewConn(h.log, socket, domain.NewHandle(userID), h.opts)
	session, err := h.sessions.Open(userID, conn)
	if err != nil {
		h.log.Warn("Session refused", "user_id", userID, "error", err)
		conn.Close()
		_ = socket.Close()
		return
	}
	defer h.sessions.Close(session)

	h.log.Debug("Connection accepted", "user_id", userID, "handle_id", conn.Handle().ID)
	conn.Serve()
}
