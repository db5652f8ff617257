package rest

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type Options struct {
	AllowedOrigins []string
	TokenDuration  time.Duration
	CookieSecure   bool
	MediaDir       string
	MediaPath      string
	MaxUploadBytes int64
}

type Dependencies struct {
	Auth      *AuthHandler
	Chat      *ChatHandler
	Identity  contract.IdentityProvider
	Registry  contract.IRegistry
	WebSocket gin.HandlerFunc
}

// NewRouter mounts every public route.
// Everything under /api/messages, /api/debug and /ws requires a session.
func NewRouter(log *slog.Logger, deps Dependencies, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.RecoveryWithWriter(&logWriter{logger: log}))
	router.Use(requestLogger(log))
	router.Use(cors(opts.AllowedOrigins))

	requireSession := auth.Middleware(deps.Identity)
	withImage := limitBody(bodyLimit(opts.MaxUploadBytes))

	authRoutes := router.Group("/api/auth")
	{
		authRoutes.POST("/signup", deps.Auth.Signup)
		authRoutes.POST("/login", deps.Auth.Login)
		authRoutes.POST("/logout", deps.Auth.Logout)
		authRoutes.PUT("/update-profile", requireSession, withImage, deps.Auth.UpdateProfile)
		authRoutes.GET("/check", requireSession, deps.Auth.Check)
	}

	messages := router.Group("/api/messages", requireSession)
	{
		messages.GET("/users", deps.Chat.Users)
		messages.GET("/:id", deps.Chat.Conversation)
		messages.POST("/send/:id", withImage, deps.Chat.Send)
		messages.DELETE("/chat/:id", deps.Chat.Delete)
		messages.GET("/search/:id", deps.Chat.Search)
	}

	router.GET("/api/debug/socket-status", requireSession, SocketStatus(log, deps.Registry))

	if deps.WebSocket != nil {
		router.GET("/ws", requireSession, deps.WebSocket)
	}
	if opts.MediaDir != "" {
		router.Static(opts.MediaPath, opts.MediaDir)
	}
	return router
}

// cors lets the listed origins call the API with their session cookie.
func cors(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (lo.Contains(origins, "*") || lo.Contains(origins, origin)) {
			header := c.Writer.Header()
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			header.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// bodySlack covers the data URL prefix, the text and the JSON envelope.
const bodySlack = 64 << 10

// bodyLimit is the largest JSON body that can carry an image of
// maxUploadBytes once base64 encoded.
func bodyLimit(maxUploadBytes int64) int64 {
	if maxUploadBytes <= 0 {
		return 0
	}
	return 4*((maxUploadBytes+2)/3) + bodySlack
}

// limitBody makes reads past limit fail with *http.MaxBytesError, so an
// oversized body is refused before it is held in memory.
func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
