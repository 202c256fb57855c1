package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const SessionCookieName = "session_token"

// Manager sets and clears the session cookie with consistent attributes:
// HTTP-only, lax cross-site policy, max age matching the session window.
type Manager struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

func NewCookie(domain string, secure bool, maxAge time.Duration) *Manager {
	return &Manager{Domain: domain, Secure: secure, MaxAge: maxAge}
}

func (m *Manager) SetSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(m.MaxAge.Seconds()), "/", m.Domain, m.Secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", m.Domain, m.Secure, true)
}
