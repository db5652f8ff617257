package rest

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type signupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	ProfilePic string `json:"profilePic"`
}

type AuthHandler struct {
	log           *slog.Logger
	service       services.IAuthService
	tokenDuration time.Duration
	cookieSecure  bool
}

func NewAuthHandler(log *slog.Logger, service services.IAuthService, tokenDuration time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{log: log, service: service, tokenDuration: tokenDuration, cookieSecure: cookieSecure}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	user, token, err := h.service.Signup(req.FullName, req.Email, req.Password)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	h.setCookie(c, token.String(), h.tokenDuration)
	c.JSON(http.StatusCreated, user.Public())
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	user, token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	h.setCookie(c, token.String(), h.tokenDuration)
	c.JSON(http.StatusOK, user.Public())
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -time.Second)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), auth.UserID(c), req.ProfilePic)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

func (h *AuthHandler) Check(c *gin.Context) {
	user, err := h.service.Check(auth.UserID(c))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// setCookie with a negative maxAge clears the cookie.
func (h *AuthHandler) setCookie(c *gin.Context, token string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, token, int(maxAge.Seconds()), "/", "", h.cookieSecure, true)
}

type ChatHandler struct {
	log     *slog.Logger
	service services.IChatService
}

func NewChatHandler(log *slog.Logger, service services.IChatService) *ChatHandler {
	return &ChatHandler{log: log, service: service}
}

func (h *ChatHandler) Users(c *gin.Context) {
	users, err := h.service.ListUsers(auth.UserID(c))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(users, func(u domain.User, _ int) domain.PublicUser { return u.Public() }))
}

func (h *ChatHandler) Conversation(c *gin.Context) {
	messages, err := h.service.GetConversation(auth.UserID(c), c.Param("id"))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req services.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	env, err := h.service.SendMessage(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, env)
}

func (h *ChatHandler) Delete(c *gin.Context) {
	deleted, err := h.service.DeleteConversation(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat deleted successfully", "deletedCount": deleted})
}

func (h *ChatHandler) Search(c *gin.Context) {
	messages, err := h.service.Search(c.Request.Context(), auth.UserID(c), c.Param("id"), c.Query("q"))
	if err != nil {
		abortWithError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

type socketStatus struct {
	contract.RegistryStats
	OnlineUserIDs []string              `json:"onlineUserIds"`
	Process       *workers.ProcessStats `json:"process,omitempty"`
}

// SocketStatus reports who is connected and how the process is doing.
func SocketStatus(log *slog.Logger, registry contract.IRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := socketStatus{
			RegistryStats: registry.Stats(),
			OnlineUserIDs: registry.SnapshotOnlineUserIDs(),
		}
		if stats, err := workers.SelfStats(); err != nil {
			log.Warn("Process stats unavailable", "error", err)
		} else {
			status.Process = &stats
		}
		c.JSON(http.StatusOK, status)
	}
}

func badBody(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Request body too large"})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
}

func abortWithError(c *gin.Context, log *slog.Logger, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "path", c.FullPath(), "user_id", auth.UserID(c), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"message": errors.PublicMessage(err)})
}
