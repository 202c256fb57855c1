package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lysnhq/lysn-backend/internal/application"
	"github.com/lysnhq/lysn-backend/pkg/helpers"
	"github.com/lysnhq/lysn-backend/pkg/response"
)

const CtxUserEmailKey = "userEmail"

// SessionToken pulls the bearer token from the session cookie or the
// Authorization header.
func SessionToken(c *gin.Context) string {
	if tok, err := c.Cookie(helpers.SessionCookieName); err == nil && tok != "" {
		return tok
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Auth validates the session token against the session store, refreshing its
// sliding window, and injects the owning email into the Gin context.
func Auth(sessions *application.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "missing session token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		email, err := sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			resp := response.Error[any](c, http.StatusUnauthorized, "invalid or expired session", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set(CtxUserEmailKey, email)
		c.Next()
	}
}
