package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/eventhub/internal/interface/http"
	"github.com/oksasatya/eventhub/internal/interface/middleware"
)

// DebugModule serves /health and, when enabled, expvar counters on /debug/vars.
type DebugModule struct {
	Health      *handlers.HealthHandler
	Redis       *redis.Client
	VarsEnabled bool
}

func NewDebugModule(h *handlers.HealthHandler, rdb *redis.Client, varsEnabled bool) *DebugModule {
	return &DebugModule{Health: h, Redis: rdb, VarsEnabled: varsEnabled}
}

func (m *DebugModule) Name() string { return "debug" }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Health.Health)
	if !m.VarsEnabled {
		return
	}
	// Metrics endpoint (expvar), rate-limited per IP; internal scrapers bypass the limit
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
