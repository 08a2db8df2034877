package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/eventhub/internal/application"
	"github.com/oksasatya/eventhub/pkg/helpers"
	"github.com/oksasatya/eventhub/pkg/response"
)

// CallerResolver checks the session behind a token and returns who it belongs to.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, userID, sessionID string) (application.Caller, error)
}

// Auth validates the access token and its session.
// It sets userID, userName, and userEmail in the Gin context on success.
func Auth(jwt *helpers.JWTManager, resolver CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
			c.Abort()
			return
		}

		caller, err := resolver.ResolveCaller(c.Request.Context(), claims.UserID, claims.SessionID)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, caller.ID)
		c.Set(CtxUserNameKey, caller.Username)
		c.Set(CtxUserEmailKey, caller.Email)
		c.Next()
	}
}
