package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/eventhub/internal/interface/http"
	"github.com/oksasatya/eventhub/internal/interface/middleware"
	"github.com/oksasatya/eventhub/pkg/helpers"
)

// EventModule wires event browsing, creation, registration and tickets.
// Public: GET /events, GET /events/search
// Protected: everything else under /events
type EventModule struct {
	Events   *handlers.EventHandler
	Tickets  *handlers.TicketHandler
	JWT      *helpers.JWTManager
	Resolver middleware.CallerResolver
	Redis    *redis.Client
}

func NewEventModule(events *handlers.EventHandler, tickets *handlers.TicketHandler, jwt *helpers.JWTManager, resolver middleware.CallerResolver, rdb *redis.Client) *EventModule {
	return &EventModule{Events: events, Tickets: tickets, JWT: jwt, Resolver: resolver, Redis: rdb}
}

func (m *EventModule) Name() string { return "event" }

func (m *EventModule) Register(rg *gin.RouterGroup) {
	publicLimiter := middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), nil)
	rg.GET("/events", publicLimiter, m.Events.List)
	rg.GET("/events/search", publicLimiter, m.Events.Search)

	auth := rg.Group("/events")
	auth.Use(middleware.Auth(m.JWT, m.Resolver))
	// Apply a softer per-IP limiter to all protected routes
	auth.Use(
		middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/mycreatedevents", m.Events.MyCreated)
		auth.GET("/myregistrations", m.Events.MyRegistrations)
		auth.POST("/create", m.Events.Create)
		auth.GET("/:eventId", m.Events.Get)
		auth.POST("/:eventId/register", m.Events.Register)
		auth.GET("/:eventId/attendees", m.Events.Attendees)
		auth.GET("/:eventId/ticket", m.Tickets.Get)
		auth.POST("/:eventId/ticket/email", middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByUserID(), nil), m.Tickets.Email)
	}
}
