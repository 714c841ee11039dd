// Package leads provides the lead lifecycle bounded context: marketing
// intake, triage, handover to the sales pool, claims, and prospecting
// targets.
package leads

import (
	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/idempotency"
	"salesdesk_backend/internal/leads/handler"
	"salesdesk_backend/internal/leads/ports"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/leads/service"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule wires the leads module. The materializer and account reader are
// adapters over other bounded contexts; they are injected so conversion can
// share the claim transaction without a package cycle.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, ledger *idempotency.Ledger, recorder *audit.Recorder, materializer ports.ConversionMaterializer, accounts ports.AccountDuplicateReader, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, ledger, recorder, eventBus, materializer, accounts, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead lifecycle service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the lead repository for scheduler jobs that sweep the
// sales pool.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead and prospecting-target routes. All routes
// require authentication.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterTargetRoutes(ctx.Protected.Group("/targets"))
}

var _ apphttp.Module = (*Module)(nil)
