package auth

import (
	"chat-relay/contract"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CookieName holds the session token set at login.
const CookieName = "jwt"

type contextKey string

const UserIDKey contextKey = "user_id"

// Credential extracts the session token from the request, in order:
// the jwt cookie, an "Authorization: Bearer" header, then the token query
// parameter, which browsers need because they cannot set headers on a
// WebSocket handshake.
func Credential(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Middleware rejects requests without a valid credential and injects the
// trusted user id for downstream handlers.
func Middleware(provider contract.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := Credential(c.Request)
		if credential == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized - No Token Provided"})
			return
		}

		userID, err := provider.Validate(credential)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized - Invalid Token"})
			return
		}

		c.Set(string(UserIDKey), userID)
		c.Next()
	}
}

// UserID returns the id injected by Middleware, empty on public routes.
func UserID(c *gin.Context) string {
	return c.GetString(string(UserIDKey))
}
