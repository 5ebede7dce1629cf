package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/interfaces/httpserver/handlers"
)

// Routes holds the v1 route configuration.
type Routes struct {
	handlers *handlers.Provider
	log      zerolog.Logger
}

// NewRoutes creates a new v1 routes instance.
func NewRoutes(handlerProvider *handlers.Provider, log zerolog.Logger) *Routes {
	return &Routes{
		handlers: handlerProvider,
		log:      log.With().Str("component", "http-v1").Logger(),
	}
}

// Register mounts /v1. guards run in order on every v1 route; adminGuard is
// added to the /v1/admin group.
func (r *Routes) Register(engine *gin.Engine, adminGuard gin.HandlerFunc, guards ...gin.HandlerFunc) {
	v1 := engine.Group("/v1")
	for _, guard := range guards {
		if guard != nil {
			v1.Use(guard)
		}
	}

	ai := v1.Group("/ai")
	RegisterAIRoutes(ai, r.handlers.AI, r.log)
	RegisterServicesRoutes(ai, r.handlers.Services)
	RegisterUsageRoutes(ai, r.handlers.Usage, r.log)

	admin := v1.Group("/admin")
	if adminGuard != nil {
		admin.Use(adminGuard)
	}
	RegisterAdminRoutes(admin, r.handlers.Usage, r.log)
}
