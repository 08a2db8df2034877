package router

import "github.com/gin-gonic/gin"

// Module is a feature area (auth, events, debug) that mounts its routes
// under the /api group.
type Module interface {
	Name() string
	Register(rg *gin.RouterGroup)
}
