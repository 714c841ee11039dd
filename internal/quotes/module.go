// Package quotes provides versioned quotes under opportunities: gap-free
// per-opportunity versions and the Draft/Sent/Accepted/Rejected machine.
package quotes

import (
	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/idempotency"
	opprepo "salesdesk_backend/internal/opportunities/repository"
	"salesdesk_backend/internal/quotes/handler"
	"salesdesk_backend/internal/quotes/repository"
	"salesdesk_backend/internal/quotes/service"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the quotes module. It depends on the opportunity
// repository directly because version assignment locks the opportunity row
// inside the quote insert transaction.
func NewModule(pool *pgxpool.Pool, opportunities *opprepo.Repository, eventBus events.Bus, val *validator.Validator, ledger *idempotency.Ledger, recorder *audit.Recorder, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, opportunities, ledger, recorder, eventBus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

func (m *Module) Name() string {
	return "quotes"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/quotes"))
	// Version history reads live under the opportunity resource.
	ctx.Protected.GET("/opportunities/:id/quotes", m.handler.ListByOpportunity)
}

var _ apphttp.Module = (*Module)(nil)
