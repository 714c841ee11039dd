package handler

import (
	"salesdesk_backend/internal/opportunities/domain"
	"salesdesk_backend/internal/opportunities/repository"
	"salesdesk_backend/internal/opportunities/service"
	"salesdesk_backend/internal/opportunities/transport"
	"salesdesk_backend/internal/rbac"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/httpkit"
	"salesdesk_backend/platform/validator"

	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/pipeline-summary", h.PipelineSummary)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/stage", h.ChangeStage)
}

func actorFrom(c *gin.Context) service.Actor {
	id := httpkit.MustGetIdentity(c)
	return service.Actor{ID: id.UserID(), Role: rbac.Role(id.Role())}
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid opportunity id"))
		return
	}

	opportunity, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, opportunity)
}

func (h *Handler) List(c *gin.Context) {
	var filter repository.ListFilter

	if raw := c.Query("accountId"); raw != "" {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid accountId"))
			return
		}
		filter.AccountID = &accountID
	}
	if raw := c.Query("ownerId"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid ownerId"))
			return
		}
		filter.OwnerID = &ownerID
	}
	if raw := c.Query("stage"); raw != "" {
		stage, err := domain.ParseStage(raw)
		if err != nil {
			httpkit.HandleError(c, err)
			return
		}
		filter.Stage = &stage
	}

	opportunities, err := h.svc.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"opportunities": opportunities})
}

func (h *Handler) ChangeStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid opportunity id"))
		return
	}
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	var req transport.ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	payload, err := h.svc.ChangeStage(c.Request.Context(), actorFrom(c), key, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}

func (h *Handler) PipelineSummary(c *gin.Context) {
	var ownerID *uuid.UUID
	if raw := c.Query("ownerId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid ownerId"))
			return
		}
		ownerID = &parsed
	}

	summary, err := h.svc.PipelineSummary(c.Request.Context(), actorFrom(c), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}
