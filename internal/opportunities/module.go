// Package opportunities provides the pipeline bounded context: opportunities
// created by conversion and moved through the stage machine until close.
package opportunities

import (
	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/idempotency"
	"salesdesk_backend/internal/opportunities/handler"
	"salesdesk_backend/internal/opportunities/repository"
	"salesdesk_backend/internal/opportunities/service"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, ledger *idempotency.Ledger, recorder *audit.Recorder, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, ledger, recorder, eventBus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

func (m *Module) Name() string {
	return "opportunities"
}

// Repository returns the opportunity repository for conversion adapters and
// the quotes module, which assigns quote versions through it.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/opportunities"))
}

var _ apphttp.Module = (*Module)(nil)
