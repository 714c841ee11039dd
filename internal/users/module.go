// Package users provides roster management: role assignment under the
// department-scoped manager rule and the role/surface catalog.
package users

import (
	"salesdesk_backend/internal/audit"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/users/handler"
	"salesdesk_backend/internal/users/repository"
	"salesdesk_backend/internal/users/service"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, recorder *audit.Recorder, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, recorder, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "users"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/users"))
	m.handler.RegisterRoleRoutes(ctx.Protected.Group("/roles"))
}

var _ apphttp.Module = (*Module)(nil)
