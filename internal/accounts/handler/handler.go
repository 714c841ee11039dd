package handler

import (
	"net/http"
	"strconv"

	"salesdesk_backend/internal/accounts/service"
	"salesdesk_backend/internal/accounts/transport"
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
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.GET("/:id/contacts", h.ListContacts)
	rg.POST("/:id/contacts", h.CreateContact)
	rg.PUT("/:id/primary-contact", h.SetPrimaryContact)
}

func actorFrom(c *gin.Context) service.Actor {
	id := httpkit.MustGetIdentity(c)
	return service.Actor{ID: id.UserID(), Role: rbac.Role(id.Role())}
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	accounts, err := h.svc.ListAccounts(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"accounts": accounts})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid account id"))
		return
	}

	account, err := h.svc.GetAccount(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, account)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid account id"))
		return
	}

	var req transport.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	account, err := h.svc.UpdateAccount(c.Request.Context(), actorFrom(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, account)
}

func (h *Handler) ListContacts(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid account id"))
		return
	}

	contacts, err := h.svc.ListContacts(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"contacts": contacts})
}

func (h *Handler) CreateContact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid account id"))
		return
	}

	var req transport.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	contact, err := h.svc.CreateContact(c.Request.Context(), actorFrom(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, contact)
}

func (h *Handler) SetPrimaryContact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid account id"))
		return
	}
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	var req transport.SetPrimaryContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	contactID, err := uuid.Parse(req.ContactID)
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid contactId"))
		return
	}

	payload, err := h.svc.SetPrimaryContact(c.Request.Context(), actorFrom(c), key, id, contactID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}
