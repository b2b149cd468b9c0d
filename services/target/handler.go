package target

import (
	"net/http"

	"salesdesk/pkg/errutil"
	"salesdesk/pkg/httpapi"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	targets, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, targets)
}

func (h *Handler) Summary(c *gin.Context) {
	sum, err := h.service.Summary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, sum)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := httpapi.ParamID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, t)
}

func (h *Handler) Create(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req CreateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	t, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.Created(c, t)
}

func (h *Handler) Update(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, err := httpapi.ParamID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req UpdateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	t, err := h.service.Update(c.Request.Context(), principal, id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, t)
}

func (h *Handler) Delete(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, err := httpapi.ParamID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
