package handler

import (
	"net/http"

	"salesdesk_backend/internal/quotes/service"
	"salesdesk_backend/internal/quotes/transport"
	"salesdesk_backend/internal/rbac"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/httpkit"
	"salesdesk_backend/platform/validator"

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
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/send", h.Send)
	rg.POST("/:id/decide", h.Decide)
}

func actorFrom(c *gin.Context) service.Actor {
	id := httpkit.MustGetIdentity(c)
	return service.Actor{ID: id.UserID(), Role: rbac.Role(id.Role())}
}

func (h *Handler) Create(c *gin.Context) {
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	var req transport.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	payload, err := h.svc.Create(c.Request.Context(), actorFrom(c), key, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusCreated, payload)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid quote id"))
		return
	}

	quote, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, quote)
}

func (h *Handler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid quote id"))
		return
	}
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	payload, err := h.svc.Send(c.Request.Context(), actorFrom(c), key, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}

func (h *Handler) Decide(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid quote id"))
		return
	}
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	var req transport.DecideQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	payload, err := h.svc.Decide(c.Request.Context(), actorFrom(c), key, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}

// ListByOpportunity serves the version history under the opportunities
// resource.
func (h *Handler) ListByOpportunity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid opportunity id"))
		return
	}

	quotes, err := h.svc.ListByOpportunity(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"quotes": quotes})
}
