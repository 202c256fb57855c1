package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/lysnhq/lysn-backend/internal/application"
	handlers "github.com/lysnhq/lysn-backend/internal/interface/http"
	"github.com/lysnhq/lysn-backend/internal/interface/middleware"
)

type AuthModule struct {
	Handler  *handlers.AuthHandler
	Sessions *application.SessionStore
	RDB      *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, sessions *application.SessionStore, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Sessions: sessions, RDB: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits
	otpRequestLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	otpVerifyLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIP(), nil)
	resetRequestLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetConfirmLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/otp/request", otpRequestLimiter, m.Handler.RequestOTP)
	rg.POST("/auth/otp/verify", otpVerifyLimiter, m.Handler.VerifyOTP)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/reset/request", resetRequestLimiter, m.Handler.RequestReset)
	rg.POST("/auth/reset/verify", resetConfirmLimiter, m.Handler.VerifyReset)
	rg.POST("/auth/reset/password", resetConfirmLimiter, m.Handler.CompleteReset)

	rg.GET("/auth/google/login", m.Handler.GoogleLogin)
	rg.GET("/auth/google/callback", m.Handler.GoogleCallback)

	// Protected
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Sessions))
	auth.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUser(), nil))
	{
		auth.POST("/auth/me", m.Handler.Me)
		auth.POST("/auth/logout", m.Handler.Logout)
		auth.POST("/auth/password", m.Handler.SetPassword)
	}
}
