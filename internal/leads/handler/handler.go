package handler

import (
	"net/http"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/leads/service"
	"salesdesk_backend/internal/leads/transport"
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
	rg.POST("", h.Create)
	rg.GET("/check-duplicate", h.CheckDuplicate)
	rg.POST("/claim", h.Claim)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/triage", h.Triage)
	rg.POST("/:id/handover", h.Handover)
	rg.POST("/:id/convert", h.Convert)
	rg.GET("/:id/notes", h.ListNotes)
	rg.POST("/:id/notes", h.AddNote)
}

func (h *Handler) RegisterTargetRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateTarget)
	rg.POST("/:id/convert", h.ConvertTarget)
}

func actorFrom(c *gin.Context) service.Actor {
	id := httpkit.MustGetIdentity(c)
	return service.Actor{ID: id.UserID(), Role: rbac.Role(id.Role())}
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), actorFrom(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) List(c *gin.Context) {
	var filter repository.ListFilter
	if raw := c.Query("status"); raw != "" {
		status := domain.Status(raw)
		filter.Status = &status
	}
	if raw := c.Query("ownerId"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid ownerId"))
			return
		}
		filter.OwnerID = &ownerID
	}

	leads, err := h.svc.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"leads": leads})
}

func (h *Handler) Triage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	var req transport.TriageLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	payload, err := h.svc.Triage(c.Request.Context(), actorFrom(c), key, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}

func (h *Handler) Handover(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	var req transport.HandoverLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	payload, err := h.svc.Handover(c.Request.Context(), actorFrom(c), key, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}

// Convert terminates a claimed lead's lifecycle. The body is empty; the
// account and opportunity already exist from claim-time materialization.
func (h *Handler) Convert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	payload, err := h.svc.Convert(c.Request.Context(), actorFrom(c), key, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}

// Claim is a collection-level POST: the body names a specific pool lead or
// asks for the next available one. An empty pool returns 200 with
// available=false.
func (h *Handler) Claim(c *gin.Context) {
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	var req transport.ClaimLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	claim := service.ClaimRequest{Next: true}
	if req.LeadID != "" && req.LeadID != "next" {
		leadID, err := uuid.Parse(req.LeadID)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid leadId"))
			return
		}
		claim = service.ClaimRequest{LeadID: leadID}
	}

	payload, err := h.svc.Claim(c.Request.Context(), actorFrom(c), key, claim)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}

func (h *Handler) CheckDuplicate(c *gin.Context) {
	email := c.Query("email")
	phone := c.Query("phone")

	resp, err := h.svc.FindDuplicates(c.Request.Context(), email, phone)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CreateTarget(c *gin.Context) {
	var req transport.CreateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	target, err := h.svc.CreateTarget(c.Request.Context(), actorFrom(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, target)
}

func (h *Handler) ConvertTarget(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid target id"))
		return
	}
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	var req transport.ConvertTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	payload, err := h.svc.ConvertTarget(c.Request.Context(), actorFrom(c), key, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}

func (h *Handler) AddNote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	var req transport.AddLeadNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	note, err := h.svc.AddNote(c.Request.Context(), actorFrom(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, note)
}

func (h *Handler) ListNotes(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	notes, err := h.svc.ListNotes(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"notes": notes})
}
