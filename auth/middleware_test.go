package auth_test

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/mocks"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCredential_Sources(t *testing.T) {
	tests := []struct {
		name     string
		build    func(r *http.Request)
		expected string
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "from-cookie"}) }, "from-cookie"},
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer from-header") }, "from-header"},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=from-query" }, "from-query"},
		{"none", func(r *http.Request) {}, ""},
		{"cookie wins", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "from-cookie"})
			r.Header.Set("Authorization", "Bearer from-header")
		}, "from-cookie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tt.build(r)
			require.Equal(t, tt.expected, auth.Credential(r))
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	provider := mocks.NewMockIdentityProvider(ctrl)

	router := gin.New()
	router.GET("/me", auth.Middleware(provider), func(c *gin.Context) {
		c.String(http.StatusOK, auth.UserID(c))
	})

	t.Run("should reject a request without token", func(t *testing.T) {
		req := require.New(t)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

		req.Equal(http.StatusUnauthorized, w.Code)
		req.Contains(w.Body.String(), "No Token Provided")
	})

	t.Run("should reject an invalid token", func(t *testing.T) {
		req := require.New(t)
		provider.EXPECT().Validate("bad").Return("", errors.ErrUnauthenticated).Times(1)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.Header.Set("Authorization", "Bearer bad")

		router.ServeHTTP(w, r)

		req.Equal(http.StatusUnauthorized, w.Code)
		req.Contains(w.Body.String(), "Invalid Token")
	})

	t.Run("should inject the user id", func(t *testing.T) {
		req := require.New(t)
		provider.EXPECT().Validate("good").Return("user-1", nil).Times(1)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "good"})

		router.ServeHTTP(w, r)

		req.Equal(http.StatusOK, w.Code)
		req.Equal("user-1", w.Body.String())
	})
}
