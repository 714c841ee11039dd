// Package accounts provides the customer bounded context: accounts converted
// from leads or targets and the contacts under them.
package accounts

import (
	"salesdesk_backend/internal/accounts/handler"
	"salesdesk_backend/internal/accounts/repository"
	"salesdesk_backend/internal/accounts/service"
	"salesdesk_backend/internal/audit"
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

func NewModule(pool *pgxpool.Pool, val *validator.Validator, ledger *idempotency.Ledger, recorder *audit.Recorder, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, ledger, recorder, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

func (m *Module) Name() string {
	return "accounts"
}

// Repository returns the account repository for conversion adapters and the
// dedupe reader.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/accounts"))
}

var _ apphttp.Module = (*Module)(nil)
