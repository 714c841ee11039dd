package handler

import (
	"net/http"

	"salesdesk_backend/internal/activities/repository"
	"salesdesk_backend/internal/activities/service"
	"salesdesk_backend/internal/activities/transport"
	"salesdesk_backend/internal/rbac"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/httpkit"
	"salesdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxEvidenceBytes caps a single evidence upload.
const maxEvidenceBytes = 25 << 20

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Schedule)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/complete", h.Complete)
	rg.GET("/:id/evidence", h.ListEvidence)
	rg.POST("/:id/evidence", h.AttachEvidence)
}

func actorFrom(c *gin.Context) service.Actor {
	id := httpkit.MustGetIdentity(c)
	return service.Actor{ID: id.UserID(), Role: rbac.Role(id.Role())}
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid activity id"))
		return
	}

	activity, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, activity)
}

func (h *Handler) List(c *gin.Context) {
	var filter repository.ListFilter

	if raw := c.Query("opportunityId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid opportunityId"))
			return
		}
		filter.OpportunityID = &id
	}
	if raw := c.Query("ownerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid ownerId"))
			return
		}
		filter.OwnerID = &id
	}
	if raw := c.Query("status"); raw != "" {
		filter.Status = &raw
	}

	activities, err := h.svc.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"activities": activities})
}

func (h *Handler) Schedule(c *gin.Context) {
	var req transport.ScheduleActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	activity, err := h.svc.Schedule(c.Request.Context(), actorFrom(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, activity)
}

func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid activity id"))
		return
	}
	key, ok := httpkit.IdempotencyKey(c)
	if !ok {
		return
	}

	var req transport.CompleteActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.StructErr(req); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	payload, err := h.svc.Complete(c.Request.Context(), actorFrom(c), key, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.RawJSON(c, http.StatusOK, payload)
}

func (h *Handler) AttachEvidence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid activity id"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("file is required"))
		return
	}
	if fileHeader.Size > maxEvidenceBytes {
		httpkit.HandleError(c, apperr.Validation("file exceeds the 25MB limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "open upload", err))
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	evidence, err := h.svc.AttachEvidence(c.Request.Context(), actorFrom(c), id,
		fileHeader.Filename, contentType, fileHeader.Size, file)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, evidence)
}

func (h *Handler) ListEvidence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid activity id"))
		return
	}

	evidence, err := h.svc.ListEvidence(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"evidence": evidence})
}
