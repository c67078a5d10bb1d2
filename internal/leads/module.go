// Package leads provides the buyer lead bounded context module: validation
// schema, mutation service, storage, and HTTP routes.
package leads

import (
	apphttp "buyerlead_backend/internal/http"
	"buyerlead_backend/internal/leads/handler"
	"buyerlead_backend/internal/leads/repository"
	"buyerlead_backend/internal/leads/schema"
	"buyerlead_backend/internal/leads/service"
	"buyerlead_backend/platform/logger"
	"buyerlead_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	sch := schema.New(val)
	repo := repository.New(pool)
	svc := service.New(repo, sch, log)

	return &Module{
		handler: handler.New(svc, sch),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts leads routes on the provided router context.
// All leads routes require authentication.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
