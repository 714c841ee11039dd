// Package activities provides scheduled work items under opportunities:
// completion with follow-up chaining and evidence attachments.
package activities

import (
	"salesdesk_backend/internal/activities/handler"
	"salesdesk_backend/internal/activities/ports"
	"salesdesk_backend/internal/activities/repository"
	"salesdesk_backend/internal/activities/service"
	"salesdesk_backend/internal/audit"
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/idempotency"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, ledger *idempotency.Ledger, recorder *audit.Recorder, store ports.EvidenceStore, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, ledger, recorder, eventBus, store, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

func (m *Module) Name() string {
	return "activities"
}

// Repository returns the activity repository for conversion adapters and the
// scheduler's due-follow-up sweep.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/activities"))
}

var _ apphttp.Module = (*Module)(nil)
