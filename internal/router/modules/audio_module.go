package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/lysnhq/lysn-backend/internal/application"
	handlers "github.com/lysnhq/lysn-backend/internal/interface/http"
	"github.com/lysnhq/lysn-backend/internal/interface/middleware"
)

type AudioModule struct {
	Handler  *handlers.AudioHandler
	Sessions *application.SessionStore
	RDB      *redis.Client
}

func NewAudioModule(h *handlers.AudioHandler, sessions *application.SessionStore, rdb *redis.Client) *AudioModule {
	return &AudioModule{Handler: h, Sessions: sessions, RDB: rdb}
}

func (m *AudioModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Sessions))
	auth.Use(
		middleware.RateLimit(m.RDB, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUser(), nil),
	)
	{
		// Conversions are slow; tighter limit on upload
		auth.POST("/pdf/upload", middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByUser(), nil), m.Handler.Upload)
		auth.GET("/audio/list", m.Handler.List)
		auth.GET("/audio/search", m.Handler.Search)
	}
}
