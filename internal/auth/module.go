// Package auth provides the authentication bounded context module.
package auth

import (
	"buyerlead_backend/internal/auth/handler"
	"buyerlead_backend/internal/auth/repository"
	"buyerlead_backend/internal/auth/service"
	apphttp "buyerlead_backend/internal/http"
	"buyerlead_backend/platform/config"
	"buyerlead_backend/platform/logger"
	"buyerlead_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the auth module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg config.AuthServiceConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg)
	return &Module{handler: handler.New(svc, val, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts auth routes. Register and login sit behind the
// stricter auth rate limiter; /me requires authentication.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/auth")
	public.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(public)

	m.handler.RegisterProtectedRoutes(ctx.Protected.Group("/auth"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
