package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/infrastructure/auth"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/handlers"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/middlewares"
	v1 "github.com/janhq/sense-api/internal/interfaces/httpserver/routes/v1"
)

// Provider holds all route providers.
type Provider struct {
	V1            *v1.Routes
	authValidator *auth.Validator
	rateLimiter   *middlewares.RateLimiter
}

// NewProvider creates a new route provider.
func NewProvider(handlerProvider *handlers.Provider, authValidator *auth.Validator, rateLimiter *middlewares.RateLimiter, log zerolog.Logger) *Provider {
	return &Provider{
		V1:            v1.NewRoutes(handlerProvider, log),
		authValidator: authValidator,
		rateLimiter:   rateLimiter,
	}
}

// Register mounts the API. Auth runs before the rate limiter so buckets are per principal.
func (p *Provider) Register(engine *gin.Engine) {
	var guards []gin.HandlerFunc
	var adminGuard gin.HandlerFunc
	if p.authValidator != nil {
		guards = append(guards, p.authValidator.Middleware())
		adminGuard = p.authValidator.RequireAdmin()
	}
	if p.rateLimiter != nil {
		guards = append(guards, p.rateLimiter.Middleware())
	}
	p.V1.Register(engine, adminGuard, guards...)
}

// RouteProvider provides all routes for wire.
var RouteProvider = wire.NewSet(
	middlewares.NewRateLimiter,
	NewProvider,
)
