package router

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/lysnhq/lysn-backend/config"
	"github.com/lysnhq/lysn-backend/internal/application"
	"github.com/lysnhq/lysn-backend/internal/infrastructure/convert"
	"github.com/lysnhq/lysn-backend/internal/infrastructure/kv"
	pginfra "github.com/lysnhq/lysn-backend/internal/infrastructure/postgres"
	handlers "github.com/lysnhq/lysn-backend/internal/interface/http"
	"github.com/lysnhq/lysn-backend/internal/router/modules"
	"github.com/lysnhq/lysn-backend/pkg/helpers"
)

// Deps carries the process-wide singletons the modules are built from.
type Deps struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	Pool   *pgxpool.Pool
	RDB    *redis.Client
	GCS    *storage.Client
	ES     *elasticsearch.Client
	Pub    *helpers.RabbitPublisher
}

// InitModules constructs every feature module and registers it with the
// router registry. Called once during startup.
func InitModules(r *Registry, d Deps) {
	store := kv.NewRedisStore(d.RDB)

	var mail application.EmailPublisher
	if d.Pub != nil && d.Cfg.MailSendEnabled {
		mail = d.Pub
	}

	authSvc := &application.AuthService{
		Users:     pginfra.NewUserRepository(d.Pool),
		OTP:       application.NewOTPManager(store, d.Cfg.OTPTTL),
		Sessions:  application.NewSessionStore(store, d.Cfg.SessionTTL),
		Tickets:   store,
		TicketTTL: d.Cfg.ResetTicketTTL,
		Provider:  application.NewGoogleProvider(d.Cfg.GoogleClientID, d.Cfg.GoogleClientSecret, d.Cfg.GoogleRedirectURI),
		Mail:      mail,
		AppName:   d.Cfg.AppName,
		Logger:    d.Logger,
	}

	audioSvc := &application.AudioService{
		Repo:        pginfra.NewAudioRepository(d.Pool),
		Extractor:   convert.PDFExtractor{},
		Synthesizer: convert.NewHTTPSynthesizer(d.Cfg.TTSEndpoint),
		GCS:         d.GCS,
		GCSBucket:   d.Cfg.GCSBucket,
		ES:          d.ES,
		ESIndex:     d.Cfg.ESAudioIndex,
		Logger:      d.Logger,
	}

	cookies := helpers.NewCookie(d.Cfg.CookieDomain, d.Cfg.CookieSecure, d.Cfg.SessionTTL)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(authSvc, d.Logger, cookies), authSvc.Sessions, d.RDB))
	r.Add(modules.NewAudioModule(handlers.NewAudioHandler(audioSvc, d.Logger), authSvc.Sessions, d.RDB))
	if d.Cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(d.RDB))
	}
}
