package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/eventhub/pkg/response"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{DB: db}
}

// Health reports liveness and, when a database is wired, its reachability.
func (h *HealthHandler) Health(c *gin.Context) {
	status := map[string]string{"api": "ok"}
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			status["database"] = "unreachable"
			response.Error[any](c, http.StatusServiceUnavailable, "unhealthy", status)
			return
		}
		status["database"] = "ok"
	}
	response.Success[any](c, http.StatusOK, status, "healthy", nil)
}
