package router

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/eventhub/config"
	"github.com/oksasatya/eventhub/internal/application"
	"github.com/oksasatya/eventhub/internal/container"
	pginfra "github.com/oksasatya/eventhub/internal/infrastructure/postgres"
	"github.com/oksasatya/eventhub/internal/infrastructure/search"
	handlers "github.com/oksasatya/eventhub/internal/interface/http"
	"github.com/oksasatya/eventhub/internal/router/modules"
	"github.com/oksasatya/eventhub/pkg/helpers"
	"github.com/oksasatya/eventhub/pkg/validation"
)

// Deps is everything the HTTP modules need. Built from the container in
// production and by hand in tests.
type Deps struct {
	Config *config.Config
	Logger *logrus.Logger
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	DB     handlers.Pinger

	Events *application.EventService
	Auth   *application.AuthService
}

// BuildDeps wires services from the container singletons. Optional clients
// left nil in the container stay disabled in the services.
func BuildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()
	rdb := container.GetRedis()
	jwt := container.GetJWT()

	tx := pginfra.NewTxManager(pool)
	users := pginfra.NewUserRepository(pool)
	events := pginfra.NewEventRepository(pool)
	regs := pginfra.NewRegistrationRepository(pool)

	eventSvc := application.NewEventService(tx, events, regs, logger)
	eventSvc.Redis = rdb
	eventSvc.CacheTTL = cfg.EventsCacheTTL
	eventSvc.Brand = cfg.MailBrand()
	eventSvc.MailEnabled = cfg.MailSendEnabled
	if es := container.GetES(); es != nil {
		eventSvc.Index = search.NewEventIndex(es, cfg.ESEventsIndex)
	}
	if pub := container.GetRabbitPub(); pub != nil {
		eventSvc.Jobs = pub
	}

	authSvc := application.NewAuthService(users, jwt, rdb, logger)
	authSvc.Brand = cfg.MailBrand()
	authSvc.MailEnabled = cfg.MailSendEnabled
	if pub := container.GetRabbitPub(); pub != nil {
		authSvc.Jobs = pub
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		authSvc.Avatars = helpers.NewGCSUploader(gcs, cfg.GCSBucket)
	}

	d := Deps{
		Config: cfg,
		Logger: logger,
		JWT:    jwt,
		Redis:  rdb,
		Events: eventSvc,
		Auth:   authSvc,
	}
	if pool != nil {
		d.DB = pool
	}
	return d
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry, d Deps) {
	validation.Init()

	cookieDomain, cookieSecure, varsEnabled := "", false, false
	if d.Config != nil {
		cookieDomain = d.Config.CookieDomain
		cookieSecure = d.Config.CookieSecure
		varsEnabled = d.Config.DebugMetricsEnabled
	}

	eventHandler := handlers.NewEventHandler(d.Events, d.Logger)
	ticketHandler := handlers.NewTicketHandler(d.Events, d.Logger)
	authHandler := handlers.NewAuthHandler(d.Auth, d.Logger, cookieDomain, cookieSecure)

	r.Add(modules.NewDebugModule(handlers.NewHealthHandler(d.DB), d.Redis, varsEnabled))
	r.Add(modules.NewAuthModule(authHandler, d.JWT, d.Auth, d.Redis))
	r.Add(modules.NewEventModule(eventHandler, ticketHandler, d.JWT, d.Auth, d.Redis))
}
